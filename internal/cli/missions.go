package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/iliyamo/roadassist-console/internal/app"
	"github.com/iliyamo/roadassist-console/internal/model"
	"github.com/iliyamo/roadassist-console/internal/service"
)

func (r *root) missionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "missions",
		Short: "List, show and create missions",
	}
	cmd.AddCommand(r.missionsListCmd(), r.missionsGetCmd(), r.missionsCreateCmd())
	return cmd
}

func (r *root) missionsListCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List missions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return r.withApp(cmd, func(ctx context.Context, a *app.App) error {
				if !a.Session.IsAuthenticated() {
					return ErrNotLoggedIn
				}
				missions, err := a.Client.Missions(ctx)
				if err != nil {
					return err
				}
				if status != "" {
					want := model.MissionStatus(strings.ToUpper(status))
					filtered := missions[:0]
					for _, m := range missions {
						if m.Status == want {
							filtered = append(filtered, m)
						}
					}
					missions = filtered
				}
				if r.jsonOutput {
					return r.printJSON(missions)
				}
				return writeMissionTable(r.env.Out, missions)
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Only missions with this status")
	return cmd
}

func writeMissionTable(w io.Writer, missions []model.Mission) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tPRIORITY\tREQUESTER\tPHONE\tPLATE")
	for _, m := range missions {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			m.ID, m.Status, m.Priority, m.RequesterName,
			service.FormatPhoneDisplay(m.RequesterPhone), service.FormatVehiclePlate(m.VehiclePlate))
	}
	return tw.Flush()
}

func (r *root) missionsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one mission",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withApp(cmd, func(ctx context.Context, a *app.App) error {
				if !a.Session.IsAuthenticated() {
					return ErrNotLoggedIn
				}
				m, err := a.Client.Mission(ctx, args[0])
				if err != nil {
					return err
				}
				if r.jsonOutput {
					return r.printJSON(m)
				}
				fmt.Fprintf(r.env.Out, "Mission %s\n", m.ID)
				fmt.Fprintf(r.env.Out, "  Status:      %s\n", m.Status)
				fmt.Fprintf(r.env.Out, "  Priority:    %s\n", m.Priority)
				fmt.Fprintf(r.env.Out, "  Type:        %s\n", m.MissionType.Name)
				fmt.Fprintf(r.env.Out, "  Requester:   %s, %s\n", m.RequesterName, service.FormatPhoneDisplay(m.RequesterPhone))
				fmt.Fprintf(r.env.Out, "  Vehicle:     %s %s (%s)\n", m.VehicleMake, m.VehicleModel, service.FormatVehiclePlate(m.VehiclePlate))
				fmt.Fprintf(r.env.Out, "  Pickup:      %s\n", m.PickupAddress)
				fmt.Fprintf(r.env.Out, "  Destination: %s\n", m.DestinationAddress)
				return nil
			})
		},
	}
}

func (r *root) missionsCreateCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a mission from a JSON file (- for stdin)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := r.readMissionRequest(file)
			if err != nil {
				return err
			}
			if err := service.ValidateMissionRequest(req); err != nil {
				return err
			}
			return r.withApp(cmd, func(ctx context.Context, a *app.App) error {
				if !a.Session.IsAuthenticated() {
					return ErrNotLoggedIn
				}
				m, err := a.Client.CreateMission(ctx, req)
				if err != nil {
					return err
				}
				if r.jsonOutput {
					return r.printJSON(m)
				}
				fmt.Fprintf(r.env.Out, "Created mission %s\n", m.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", "Mission request JSON")
	return cmd
}

func (r *root) readMissionRequest(file string) (model.MissionRequest, error) {
	var in io.Reader = r.env.In
	if file != "-" {
		f, err := os.Open(file)
		if err != nil {
			return model.MissionRequest{}, err
		}
		defer f.Close()
		in = f
	}
	var req model.MissionRequest
	if err := json.NewDecoder(in).Decode(&req); err != nil {
		return model.MissionRequest{}, fmt.Errorf("decoding mission request: %w", err)
	}
	return req, nil
}

func (r *root) providersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List assistance providers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return r.withApp(cmd, func(ctx context.Context, a *app.App) error {
				if !a.Session.IsAuthenticated() {
					return ErrNotLoggedIn
				}
				providers, err := a.Client.Providers(ctx)
				if err != nil {
					return err
				}
				if r.jsonOutput {
					return r.printJSON(providers)
				}
				for _, p := range providers {
					fmt.Fprintf(r.env.Out, "%s\t%s\n", p.Reference, p.Name)
				}
				return nil
			})
		},
	}
}
