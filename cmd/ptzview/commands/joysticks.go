package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/bryanchriswhite/PTZView/internal/input"
	"github.com/spf13/cobra"
)

var joysticksCmd = &cobra.Command{
	Use:   "joysticks",
	Short: "List attached joysticks",
	Long: `List the joysticks that can be opened, with their axis and button counts.

Axis 0 pans, axis 1 tilts and axis 3 zooms. Releasing button 0 stops the camera.`,
	RunE: runJoysticks,
}

var (
	joysticksFormat string
	joysticksMax    int
)

func init() {
	rootCmd.AddCommand(joysticksCmd)

	joysticksCmd.Flags().StringVarP(&joysticksFormat, "format", "f", "table", "output format (table or json)")
	joysticksCmd.Flags().IntVar(&joysticksMax, "max", 0, "number of device ids to probe (default from config)")
}

func runJoysticks(cmd *cobra.Command, args []string) error {
	configMgr, err := loadConfig()
	if err != nil {
		return err
	}

	max := joysticksMax
	if max <= 0 {
		max = configMgr.Get().Joystick.MaxDevices
	}
	devices := input.Scan(input.OpenDevice, max)

	switch joysticksFormat {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(devices)
	case "table":
		if len(devices) == 0 {
			fmt.Println("No joysticks found")
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tAXES\tBUTTONS")
		for _, d := range devices {
			fmt.Fprintf(w, "%d\t%s\t%d\t%d\n", d.ID, d.Name, d.Axes, d.Buttons)
		}
		return w.Flush()
	default:
		return fmt.Errorf("unsupported format: %s (use 'table' or 'json')", joysticksFormat)
	}
}
