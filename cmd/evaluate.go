package cmd

import (
	"fmt"
	"math/big"

	"github.com/michaelpento.lv/arbengine/types"
	"github.com/michaelpento.lv/arbengine/utils"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	evalTokenA  string
	evalTokenB  string
	evalVenue1  string
	evalVenue2  string
	evalAmount  string
	evalReverse bool
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate a single two-leg opportunity without trading",
	Run: func(cmd *cobra.Command, args []string) {
		log := utils.GetLogger()

		rt, err := setup(cmd.Context(), log)
		if err != nil {
			log.Fatal("Failed to initialize engine", zap.Error(err))
		}

		amount, ok := new(big.Int).SetString(evalAmount, 10)
		if !ok {
			log.Fatal("Invalid amount", zap.String("amount", evalAmount))
		}
		req := types.OpportunityRequest{
			TokenA:          common.HexToAddress(evalTokenA),
			TokenB:          common.HexToAddress(evalTokenB),
			AmountIn:        amount,
			Venue1:          common.HexToAddress(evalVenue1),
			Venue2:          common.HexToAddress(evalVenue2),
			ReverseOnVenue2: evalReverse,
		}

		profit, err := rt.eng.Evaluate(cmd.Context(), req)
		if err != nil {
			log.Fatal("Evaluation failed", zap.Error(err))
		}
		fmt.Printf("expected profit: %s\n", profit.String())
	},
}

func init() {
	rootCmd.AddCommand(evaluateCmd)
	evaluateCmd.Flags().StringVar(&evalTokenA, "token-a", "", "input token address")
	evaluateCmd.Flags().StringVar(&evalTokenB, "token-b", "", "intermediate token address")
	evaluateCmd.Flags().StringVar(&evalVenue1, "venue1", "", "first venue address")
	evaluateCmd.Flags().StringVar(&evalVenue2, "venue2", "", "second venue address")
	evaluateCmd.Flags().StringVar(&evalAmount, "amount", "", "input amount in base units")
	evaluateCmd.Flags().BoolVar(&evalReverse, "reverse", true, "route leg1 output back through venue2")
	for _, f := range []string{"token-a", "token-b", "venue1", "venue2", "amount"} {
		_ = evaluateCmd.MarkFlagRequired(f)
	}
}
