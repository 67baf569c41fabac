// cmd/kcal-log/profile.go
package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"mcp-kcal-log/internal/estimator"
	"mcp-kcal-log/internal/models"
)

var (
	setGender   string
	setHeight   int
	setWeight   float64
	setCalories int
	setToken    string
	setModel    string
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show or change body data, targets and the GitHub token",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(false, func(a *app) error {
			fmt.Fprint(cmd.OutOrStdout(), formatProfile(a.tracker.Profile()))
			return nil
		})
	},
}

var profileSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Update profile fields; unset flags keep their value",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(false, func(a *app) error {
			p := a.tracker.Profile()
			flags := cmd.Flags()
			if flags.Changed("gender") {
				g, err := models.ParseGender(setGender)
				if err != nil {
					return err
				}
				p.Gender = g
			}
			if flags.Changed("height") {
				p.HeightCm = setHeight
			}
			if flags.Changed("weight") {
				p.WeightKg = setWeight
			}
			if flags.Changed("calories") {
				p.TargetCalories = setCalories
			}
			if flags.Changed("token") {
				p.APIKey = setToken
			}
			if flags.Changed("model") {
				p.Model = setModel
			}

			saved, err := a.tracker.UpdateProfile(p)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatProfile(saved))
			return nil
		})
	},
}

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check that the saved token and model can reach GitHub Models",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(false, func(a *app) error {
			fmt.Fprintln(cmd.OutOrStdout(), a.tracker.TestConnection(context.Background()))
			return nil
		})
	},
}

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List suggested model ids",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(false, func(a *app) error {
			selected := a.tracker.Profile().Model
			for _, m := range estimator.AvailableModels {
				marker := " "
				if m == selected {
					marker = "*"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", marker, m)
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(profileCmd, pingCmd, modelsCmd)
	profileCmd.AddCommand(profileSetCmd)

	f := profileSetCmd.Flags()
	f.StringVar(&setGender, "gender", "", "MALE or FEMALE")
	f.IntVar(&setHeight, "height", 0, "height in cm")
	f.Float64Var(&setWeight, "weight", 0, "weight in kg (sets the protein target)")
	f.IntVar(&setCalories, "calories", 0, "daily calorie target")
	f.StringVar(&setToken, "token", "", "GitHub token (github_pat_...)")
	f.StringVar(&setModel, "model", "", "GitHub Models model id")
}
