package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/ai4care/ai4care/internal/assessment"
	"github.com/ai4care/ai4care/internal/places"
	"github.com/ai4care/ai4care/internal/triage"
	"github.com/ai4care/ai4care/pkg/geo"
)

func newAssessCommand(a *app) *cobra.Command {
	var (
		form    triage.SymptomForm
		explain bool
		lat     float64
		lng     float64
		address string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "assess",
		Short: "Assess the urgency of your symptoms",
		Example: `  ai4care assess --description "Sharp pain in my lower right abdomen since this morning" --pain-level 7 --pain-type Sharp
  ai4care assess -d "Crushing chest pain spreading to my left arm" -p 9 -t Stabbing --lat 52.37 --lng 4.90`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			in, err := triage.ParseSymptomForm(form)
			if err != nil {
				if ve, ok := triage.AsValidationError(err); ok {
					printFieldErrors(cmd.ErrOrStderr(), ve)
				}
				return err
			}

			triager, err := a.pipeline()
			if err != nil {
				return err
			}
			runner := assessment.NewRunner(assessment.NewSession(), triager, a.history, a.logger)

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Analyzing...")
			tok, result, err := runner.Assess(ctx, in)
			if err != nil {
				return fmt.Errorf("analysis failed, try again: %w", err)
			}

			card, _ := triage.Guidance(result.UrgencyLevel)
			printResult(out, result, card)

			if explain {
				text, err := runner.Explain(ctx, tok)
				if err != nil {
					return err
				}
				printExplanation(out, text)
			}

			if !card.OffersNearbyER() {
				return nil
			}
			var origin *geo.Point
			if cmd.Flags().Changed("lat") || cmd.Flags().Changed("lng") {
				origin = &geo.Point{Lat: lat, Lng: lng}
			}
			return a.showNearbyER(ctx, cmd, origin, address)
		},
	}

	cmd.Flags().StringVarP(&form.SymptomDescription, "description", "d", "", "Describe your symptoms (at least 20 characters)")
	cmd.Flags().StringVarP(&form.PainLevel, "pain-level", "p", "", "Pain level from 0 to 10")
	cmd.Flags().StringVarP(&form.PainType, "pain-type", "t", "", "Pain type, e.g. Sharp, Dull, Throbbing")
	cmd.Flags().BoolVarP(&explain, "explain", "e", false, "Also ask for a detailed explanation")
	cmd.Flags().Float64Var(&lat, "lat", 0, "Your latitude, for the nearest ER")
	cmd.Flags().Float64Var(&lng, "lng", 0, "Your longitude, for the nearest ER")
	cmd.Flags().StringVar(&address, "address", "", "Your address, when coordinates are unknown")
	cmd.Flags().DurationVar(&timeout, "timeout", 90*time.Second, "Give up after this long")
	return cmd
}

func (a *app) showNearbyER(ctx context.Context, cmd *cobra.Command, origin *geo.Point, address string) error {
	out := cmd.OutOrStdout()
	if origin == nil && address == "" {
		fmt.Fprintln(out, "\nPass --lat/--lng or --address to list the nearest emergency rooms.")
		return nil
	}

	finder := a.locator()
	if finder == nil {
		fmt.Fprintln(out, "\nNearby ER search is unavailable: GOOGLE_MAPS_API_KEY is not set.")
		return nil
	}

	if origin != nil {
		found, err := finder.NearbyEmergencyRooms(ctx, *origin)
		if errors.Is(err, places.ErrInvalidCoordinates) {
			return fmt.Errorf("invalid latitude or longitude: %s", origin)
		}
		if err != nil {
			return err
		}
		printFacilities(out, found)
		return nil
	}

	search, err := finder.SearchByAddress(ctx, address)
	switch {
	case errors.Is(err, places.ErrLocationNotFound):
		fmt.Fprintf(out, "\nNo location found for %s.\n", strconv.Quote(address))
		return nil
	case err != nil:
		return err
	}
	fmt.Fprintf(out, "\nNear %s:\n", search.FormattedAddress)
	printFacilities(out, search.Facilities)
	return nil
}
