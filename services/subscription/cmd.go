package subscription

import (
	"github.com/ispadmin-io/ispadmin/pkg/config"
	"github.com/ispadmin-io/ispadmin/pkg/httpserver"
	"github.com/ispadmin-io/ispadmin/services/subscription/api"
	config2 "github.com/ispadmin-io/ispadmin/services/subscription/config"
	"github.com/ispadmin-io/ispadmin/services/subscription/db"
	"github.com/ispadmin-io/ispadmin/services/subscription/gateway"
	"github.com/ispadmin-io/ispadmin/services/subscription/saga"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func SubscriptionServiceCommand() *cobra.Command {
	var (
		cnf config2.SubscriptionConfig
	)
	config.ReadFromEnv(&cnf, nil)

	cmd := &cobra.Command{
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := zap.NewProduction()
			if err != nil {
				return err
			}

			cmd.SilenceUsage = true

			pdb, err := db.NewDatabase(cnf.Postgres, logger)
			if err != nil {
				return err
			}
			if err := pdb.Initialize(); err != nil {
				return err
			}

			gw := gateway.NewClient(cnf.RouterAgent.BaseURL, logger)

			var (
				sink   saga.ProgressSink = saga.NewZapProgressSink(logger)
				alerts saga.AlertChannel = saga.NewZapAlertChannel(logger)
			)
			if cnf.NATS.URL != "" {
				nc, err := saga.NewNatsChannel(cmd.Context(), cnf.NATS.URL, logger)
				if err != nil {
					logger.Warn("nats unavailable, saga events go to the log only", zap.Error(err))
				} else {
					sink = nc
					alerts = nc
				}
			}

			orchestrator := saga.New(logger, pdb, gw, sink, alerts)

			handler, err := api.InitializeHttpServer(
				logger,
				cnf,
				orchestrator,
			)
			if err != nil {
				return err
			}

			return httpserver.RegisterAndStart(logger, cnf.Http.Address, handler)
		},
	}

	return cmd
}
