package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/neilberkman/medichat/internal/core/geo"
	"github.com/spf13/cobra"
)

var locationPick int

var locationCmd = &cobra.Command{
	Use:   "location",
	Short: "Manage the location attached to outgoing messages",
	Long: `Manage the location attached to outgoing messages.

Locations are stored per scope. Commands that create a scope print its id;
pass it back with --scope to chat or send with that location.`,
}

var locationSetCmd = &cobra.Command{
	Use:   "set <lat> <lng>",
	Short: "Store a latitude and longitude",
	Args:  cobra.ExactArgs(2),
	RunE:  runLocationSet,
}

var locationSearchCmd = &cobra.Command{
	Use:   "search <address...>",
	Short: "Search an address, optionally storing one result",
	Long: `Search an address with the Kakao Local API. Requires kakao_rest_key in
the config file or KAKAO_REST_API_KEY.

Examples:
  medichat location search 세종대로 110
  medichat location search 세종대로 110 --pick 1`,
	Args: cobra.MinimumNArgs(1),
	RunE: runLocationSearch,
}

var locationShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the stored location of a scope",
	Args:  cobra.NoArgs,
	RunE:  runLocationShow,
}

func init() {
	rootCmd.AddCommand(locationCmd)
	locationCmd.AddCommand(locationSetCmd, locationSearchCmd, locationShowCmd)
	locationSearchCmd.Flags().IntVar(&locationPick, "pick", 0, "Store the Nth result (1-based)")
}

func runLocationSet(cmd *cobra.Command, args []string) error {
	lat, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("invalid latitude %q", args[0])
	}
	lng, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("invalid longitude %q", args[1])
	}

	state, err := openLocationState()
	if err != nil {
		return err
	}
	defer state.close(true)

	ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
	defer cancel()

	loc, err := state.store.SetLocation(ctx, lat, lng)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Location set to %.6f, %.6f\n", loc.Lat, loc.Lng)
	printScope(cmd, state)
	return nil
}

func runLocationSearch(cmd *cobra.Command, args []string) error {
	if cfg.KakaoRESTKey == "" {
		return geo.ErrNoAPIKey
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
	defer cancel()

	places, err := geo.NewKakao(cfg.KakaoRESTKey).Search(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(places) == 0 {
		fmt.Fprintln(out, "No matching addresses")
		return nil
	}
	for i, p := range places {
		fmt.Fprintf(out, "%d. %s  (%.5f, %.5f)\n", i+1, p.Address, p.Lat, p.Lng)
	}

	if locationPick == 0 {
		return nil
	}
	if locationPick < 0 || locationPick > len(places) {
		return fmt.Errorf("--pick must be between 1 and %d", len(places))
	}

	state, err := openLocationState()
	if err != nil {
		return err
	}
	defer state.close(true)

	saved, err := state.store.SelectPlace(ctx, places[locationPick-1])
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\nLocation set to %s\n", saved.Address)
	printScope(cmd, state)
	return nil
}

func runLocationShow(cmd *cobra.Command, args []string) error {
	if scopeID == "" {
		return fmt.Errorf("--scope is required")
	}

	state, err := openLocationState()
	if err != nil {
		return err
	}
	defer state.close(true)

	ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
	defer cancel()

	out := cmd.OutOrStdout()
	loc, err := state.store.Location(ctx)
	if err != nil {
		return err
	}
	if loc == nil {
		fmt.Fprintln(out, "No location stored")
		return nil
	}
	fmt.Fprintf(out, "Location: %.6f, %.6f\n", loc.Lat, loc.Lng)

	saved, err := state.store.SavedAddress(ctx)
	if err != nil {
		return err
	}
	if saved != nil {
		fmt.Fprintf(out, "Address:  %s\n", saved.Address)
	}
	return nil
}

func printScope(cmd *cobra.Command, state *locationState) {
	if state.fresh {
		fmt.Fprintf(cmd.OutOrStdout(), "Scope: %s (pass --scope %s to use it)\n", state.store.Scope(), state.store.Scope())
	}
}

func expandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
