package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/rentledger/backend/internal/bootstrap"
	"github.com/rentledger/backend/internal/domain/rent"
	"github.com/rentledger/backend/internal/infrastructure/auth"
	"github.com/rentledger/backend/internal/infrastructure/config"
	"github.com/rentledger/backend/internal/infrastructure/export"
	"github.com/rentledger/backend/internal/infrastructure/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type options struct {
	logLevel string
	asOf     string
	jsonOut  bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "Query tenancy ledgers and issue operator tokens",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn, error")

	root.AddCommand(
		balanceCmd(opts),
		overdueCmd(opts),
		statementCmd(opts),
		tokenCmd(opts),
	)
	return root
}

func newLogger(opts *options) (*zap.Logger, error) {
	return logger.New(config.LogConfig{Level: opts.logLevel, Format: "console", Output: "stderr"})
}

// withContainer loads configuration and opens the services. The sqlite
// schema is created on demand; postgres schemas belong to cmd/migrate.
func withContainer(ctx context.Context, opts *options, fn func(*bootstrap.Container) error) error {
	log, err := newLogger(opts)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	c, err := bootstrap.Open(ctx, cfg, log, bootstrap.Options{Migrate: cfg.Database.Driver == "sqlite"})
	if err != nil {
		return err
	}
	defer func() {
		if err := c.Close(); err != nil {
			log.Warn("Failed to close resources", zap.Error(err))
		}
	}()
	return fn(c)
}

func parseTenancyID(arg string) (uuid.UUID, error) {
	id, err := uuid.Parse(arg)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid tenancy id %q", arg)
	}
	return id, nil
}


func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func balanceCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "balance <tenancy-id>",
		Short: "Show the outstanding rent balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTenancyID(args[0])
			if err != nil {
				return err
			}
			asOf, err := rent.ParseAsOf(opts.asOf)
			if err != nil {
				return err
			}
			return withContainer(cmd.Context(), opts, func(c *bootstrap.Container) error {
				b, err := c.Ledger.ComputeBalance(cmd.Context(), id, asOf)
				if err != nil {
					return err
				}
				if opts.jsonOut {
					return writeJSON(cmd, b)
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintf(tw, "Effective date\t%s\n", b.EffectiveDate)
				fmt.Fprintf(tw, "Total due\t%s\n", b.TotalDue)
				fmt.Fprintf(tw, "Rent paid\t%s\n", b.TotalPaid)
				fmt.Fprintf(tw, "Deposit credit\t%s\n", b.DepositCredit)
				fmt.Fprintf(tw, "Balance\t%s\n", b.Balance)
				fmt.Fprintf(tw, "Months overdue\t%d\n", b.MonthsOverdue)
				return tw.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&opts.asOf, "as-of", "", "evaluate at this date or instant")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "print JSON")
	return cmd
}

func overdueCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "overdue <tenancy-id>",
		Short: "List unpaid billing months",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTenancyID(args[0])
			if err != nil {
				return err
			}
			asOf, err := rent.ParseAsOf(opts.asOf)
			if err != nil {
				return err
			}
			return withContainer(cmd.Context(), opts, func(c *bootstrap.Container) error {
				o, err := c.Ledger.ListOverdueMonths(cmd.Context(), id, asOf)
				if err != nil {
					return err
				}
				if opts.jsonOut {
					return writeJSON(cmd, o)
				}
				if len(o.Months) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "no overdue months")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), strings.Join(o.Months, "\n"))
				fmt.Fprintf(cmd.OutOrStdout(), "suggested amount: %s\n", o.SuggestedAmount)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&opts.asOf, "as-of", "", "evaluate at this date or instant")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "print JSON")
	return cmd
}

func statementCmd(opts *options) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "statement <tenancy-id>",
		Short: "Export the tenancy statement as an xlsx workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTenancyID(args[0])
			if err != nil {
				return err
			}
			asOf, err := rent.ParseAsOf(opts.asOf)
			if err != nil {
				return err
			}
			return withContainer(cmd.Context(), opts, func(c *bootstrap.Container) error {
				s, err := c.Ledger.Statement(cmd.Context(), id, asOf)
				if err != nil {
					return err
				}
				wb, err := export.NewStatementWorkbook(s)
				if err != nil {
					return err
				}
				defer wb.Close()

				path := output
				if path == "" {
					path = export.FileName(s)
				}
				if err := wb.SaveAs(path); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&opts.asOf, "as-of", "", "evaluate at this date or instant")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: statement-<id>-<date>.xlsx)")
	return cmd
}

func tokenCmd(opts *options) *cobra.Command {
	var (
		operator string
		name     string
		ttl      time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an operator bearer token for the API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if cfg.JWT.Secret == "" {
				return fmt.Errorf("jwt.secret is not configured")
			}
			operatorID := uuid.New()
			if operator != "" {
				if operatorID, err = uuid.Parse(operator); err != nil {
					return fmt.Errorf("invalid operator id %q", operator)
				}
			}
			token, expires, err := auth.NewTokenService(cfg.JWT).Issue(operatorID, name, ttl)
			if err != nil {
				return err
			}
			if opts.jsonOut {
				return writeJSON(cmd, map[string]any{
					"operator_id": operatorID,
					"token":       token,
					"expires_at":  expires,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&operator, "operator", "", "operator id (default: random)")
	cmd.Flags().StringVar(&name, "name", "", "operator display name")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default: jwt.token_ttl)")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "print JSON")
	return cmd
}
