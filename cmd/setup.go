package cmd

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/arbengine/config"
	"github.com/michaelpento.lv/arbengine/engine"
	"github.com/michaelpento.lv/arbengine/ethtx"
	"github.com/michaelpento.lv/arbengine/token"
	"github.com/michaelpento.lv/arbengine/types"
	"github.com/michaelpento.lv/arbengine/venue"
	"github.com/michaelpento.lv/arbengine/venue/univ2"
)

// runtime is everything the commands share after wiring.
type runtime struct {
	cfg      *config.Config
	eng      *engine.Engine
	tokens   *token.ERC20Resolver
	pairs    []types.OpportunityRequest
	metrics  *engine.Metrics
	registry *prometheus.Registry
}

// setup dials the chain, builds the live token and venue bindings and
// assembles an engine with the allow-lists from the bootstrap file.
func setup(ctx context.Context, log *zap.Logger) (*runtime, error) {
	if err := config.LoadEnv(); err != nil {
		log.Debug("no .env file loaded", zap.Error(err))
	}

	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	rpc := config.GetEnvWithDefault(config.EnvRPCEndpoint, cfg.RPCEndpoint)
	if rpc == "" {
		return nil, fmt.Errorf("no RPC endpoint configured")
	}
	client, err := ethclient.Dial(rpc)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to node: %w", err)
	}

	key, err := config.GetRequiredEnv(config.EnvPrivateKey)
	if err != nil {
		return nil, err
	}
	sender, err := ethtx.NewSender(ctx, client, key)
	if err != nil {
		return nil, err
	}

	owner := common.HexToAddress(cfg.OwnerAddress)
	self := common.HexToAddress(cfg.EngineAddress)

	tokens := token.NewERC20Resolver(sender)

	list, err := config.LoadAllowlist(cfg.AllowlistFile)
	if err != nil {
		return nil, err
	}
	tokenAddrs, err := list.TokenAddresses()
	if err != nil {
		return nil, err
	}
	venueAddrs, err := list.VenueAddresses()
	if err != nil {
		return nil, err
	}
	pairs, err := list.Requests()
	if err != nil {
		return nil, err
	}

	venues := venue.NewMap()
	for i, addr := range venueAddrs {
		r, err := univ2.NewRouter(addr, fmt.Sprintf("router-%d", i), sender, tokens, log)
		if err != nil {
			return nil, err
		}
		venues.Add(r)
	}

	registry := prometheus.NewRegistry()
	metrics := engine.NewMetrics()
	if err := metrics.Register(registry); err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	eng, err := engine.New(engine.Config{
		Owner:              owner,
		Self:               self,
		Venues:             venues,
		Tokens:             tokens,
		MinProfitThreshold: cfg.MinProfitThreshold,
		MaxSlippageBps:     cfg.MaxSlippageBps,
		DeadlineWindow:     cfg.DeadlineWindow.Std(),
		Logger:             log,
		Metrics:            metrics,
	})
	if err != nil {
		return nil, err
	}

	for _, addr := range tokenAddrs {
		if err := eng.Authorize(owner, types.KindToken, addr); err != nil {
			return nil, fmt.Errorf("failed to authorize token %s: %w", addr.Hex(), err)
		}
	}
	for _, addr := range venueAddrs {
		if err := eng.Authorize(owner, types.KindVenue, addr); err != nil {
			return nil, fmt.Errorf("failed to authorize venue %s: %w", addr.Hex(), err)
		}
	}

	log.Info("engine ready",
		zap.String("owner", owner.Hex()),
		zap.String("engine", self.Hex()),
		zap.Int("tokens", len(tokenAddrs)),
		zap.Int("venues", len(venueAddrs)),
		zap.Int("pairs", len(pairs)))

	return &runtime{
		cfg:      cfg,
		eng:      eng,
		tokens:   tokens,
		pairs:    pairs,
		metrics:  metrics,
		registry: registry,
	}, nil
}
