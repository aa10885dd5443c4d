package cmd

import (
	"fmt"

	"github.com/michaelpento.lv/arbengine/utils"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var balanceToken string

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Show the engine's on-chain balance of a token",
	Run: func(cmd *cobra.Command, args []string) {
		log := utils.GetLogger()

		rt, err := setup(cmd.Context(), log)
		if err != nil {
			log.Fatal("Failed to initialize engine", zap.Error(err))
		}

		tok, err := rt.tokens.Token(common.HexToAddress(balanceToken))
		if err != nil {
			log.Fatal("Failed to resolve token", zap.Error(err))
		}
		bal, err := tok.BalanceOf(cmd.Context(), rt.eng.Address())
		if err != nil {
			log.Fatal("Failed to query balance", zap.Error(err))
		}
		fmt.Printf("%s\n", bal.String())
	},
}

func init() {
	rootCmd.AddCommand(balanceCmd)
	balanceCmd.Flags().StringVar(&balanceToken, "token", "", "token address")
	_ = balanceCmd.MarkFlagRequired("token")
}
