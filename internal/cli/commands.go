package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/isometry/terraform-provider-dccon/internal/connector"
	"github.com/isometry/terraform-provider-dccon/internal/dns"
)

func (a *app) zonesCommand() *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "zones",
		Short: "List DNS zones in topology order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := connector.ParseZoneKind(strings.ToLower(strings.TrimSpace(kind)))
			if err != nil {
				return err
			}

			return a.withService(cmd, func(ctx context.Context, svc *connector.Service) error {
				zones, err := svc.ListZones(ctx, k)
				if err != nil {
					return err
				}
				a.log.Debug().Str("kind", string(k)).Int("zones", len(zones)).Msg("Listed zones")

				cfg := svc.DNSConfig()
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				for _, z := range zones {
					label := "forward"
					if cfg.IsReverseZone(z.Name) {
						label = "reverse"
					}
					fmt.Fprintf(w, "%s\t%s\n", z.Name, label)
				}
				return w.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "all", "Zones to list: all, forward or reverse")
	return cmd
}

func (a *app) recordsCommand() *cobra.Command {
	var match string

	cmd := &cobra.Command{
		Use:   "records <zone>",
		Short: "List the records of a zone",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := connector.NewMatcher(match)
			if err != nil {
				return err
			}

			return a.withService(cmd, func(ctx context.Context, svc *connector.Service) error {
				entries, err := svc.ListRecords(ctx, args[0], m)
				if err != nil {
					return err
				}
				a.log.Debug().Str("zone", args[0]).Stringer("match", m).Int("nodes", len(entries)).Msg("Listed records")

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				for _, e := range entries {
					for _, r := range e.Records {
						fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", e.Name, r.TTL, r.Type, r.Value)
					}
				}
				return w.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&match, "match", "", "Only nodes whose name matches this wildcard pattern")
	return cmd
}

func (a *app) bindCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "bind <zone> <name> <type> <value>",
		Short: "Add a record and its A/PTR counterpart",
		Long: "Adds a record to a zone. An A record in a forward zone also gets a PTR record in the " +
			"reverse zone owning its address, and a PTR record gets the matching A record. " +
			"Records already present are left alone.",
		Args: cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			rrType, err := dns.ParseRecordType(args[2])
			if err != nil {
				return err
			}
			record := dns.Record{Name: args[1], Type: rrType, Value: args[3]}

			return a.withService(cmd, func(ctx context.Context, svc *connector.Service) error {
				result, err := svc.AddRecord(ctx, args[0], record)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s %s\n", outcome(result.Primary.Created), describe(result.Primary))

				switch m := result.Mirror; {
				case m.Skipped:
					a.log.Info().Str("reason", m.Reason).Msg("No counterpart record")
				case m.Err != nil:
					a.log.Warn().Err(m.Err).Str("zone", m.Zone).Msg("Counterpart record not written")
				default:
					fmt.Fprintf(out, "%s %s\n", outcome(m.Created), describe(m.RecordOutcome))
				}
				return nil
			})
		},
	}
}

func (a *app) groupsCommand() *cobra.Command {
	var match string

	cmd := &cobra.Command{
		Use:   "groups",
		Short: "List groups and their member counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := connector.NewMatcher(match)
			if err != nil {
				return err
			}

			return a.withService(cmd, func(ctx context.Context, svc *connector.Service) error {
				groups, err := svc.ListGroups(ctx, m)
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				for _, g := range groups {
					fmt.Fprintf(w, "%s\t%d\n", g.Name, len(g.Members))
				}
				return w.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&match, "match", "", "Only groups whose name matches this wildcard pattern")
	return cmd
}

func (a *app) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show the dccon version",
		Args:  cobra.NoArgs,
		// No configuration or logging needed.
		PersistentPreRun: func(*cobra.Command, []string) {},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "dccon", a.opts.Version)
		},
	}
}

func outcome(created bool) string {
	if created {
		return "created"
	}
	return "exists"
}

func describe(o dns.RecordOutcome) string {
	return fmt.Sprintf("%s %s %s %s", o.Zone, o.Record.Name, o.Record.Type, o.Record.Value)
}
