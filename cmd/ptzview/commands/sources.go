package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/bryanchriswhite/PTZView/internal/config"
	"github.com/spf13/cobra"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Manage the source catalog",
	Long:  `List, add and remove the video sources offered in the source menu.`,
}

var sourcesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured sources",
	Example: `  # List sources in table format (default)
  ptzview sources list

  # List sources in JSON format
  ptzview sources list --format json`,
	RunE: runSourcesList,
}

var sourcesAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a source",
	Example: `  # Add an RTSP camera with VISCA control
  ptzview sources add --computer STUDIO --name CAM-1 \
    --url rtsp://10.0.0.5/stream1 --ptz-address 10.0.0.5:5678

  # Add a test pattern
  ptzview sources add --computer LOCAL --name BARS --url videotestsrc --ptz-protocol none`,
	RunE: runSourcesAdd,
}

var sourcesRemoveCmd = &cobra.Command{
	Use:     "remove NAME",
	Short:   "Remove a source by its full name",
	Example: `  ptzview sources remove "STUDIO (CAM-1)"`,
	Args:    cobra.ExactArgs(1),
	RunE:    runSourcesRemove,
}

var (
	sourcesFormat string
	newSource     config.Source
)

func init() {
	rootCmd.AddCommand(sourcesCmd)
	sourcesCmd.AddCommand(sourcesListCmd)
	sourcesCmd.AddCommand(sourcesAddCmd)
	sourcesCmd.AddCommand(sourcesRemoveCmd)

	sourcesListCmd.Flags().StringVarP(&sourcesFormat, "format", "f", "table", "output format (table or json)")

	sourcesAddCmd.Flags().StringVar(&newSource.Computer, "computer", "", "computer publishing the source")
	sourcesAddCmd.Flags().StringVar(&newSource.Name, "name", "", "source name")
	sourcesAddCmd.Flags().StringVar(&newSource.URL, "url", "", "stream URL or GStreamer element description")
	sourcesAddCmd.Flags().StringVar(&newSource.PTZAddress, "ptz-address", "", "camera control address (host:port)")
	sourcesAddCmd.Flags().StringVar(&newSource.PTZProtocol, "ptz-protocol", "", "camera control protocol (visca or none)")
	sourcesAddCmd.MarkFlagRequired("name")
	sourcesAddCmd.MarkFlagRequired("url")
}

func runSourcesList(cmd *cobra.Command, args []string) error {
	configMgr, err := loadConfig()
	if err != nil {
		return err
	}
	sources := configMgr.Get().Sources

	switch sourcesFormat {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(sources)
	case "table":
		if len(sources) == 0 {
			fmt.Println("No sources configured. Add one with: ptzview sources add")
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "SOURCE\tURL\tPTZ")
		for _, src := range sources {
			ptzInfo := "-"
			if src.PTZAddress != "" && src.PTZProtocol != config.PTZProtocolNone {
				ptzInfo = src.PTZAddress
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", src.FullName(), src.URL, ptzInfo)
		}
		return w.Flush()
	default:
		return fmt.Errorf("unsupported format: %s (use 'table' or 'json')", sourcesFormat)
	}
}

func runSourcesAdd(cmd *cobra.Command, args []string) error {
	configMgr, err := loadConfig()
	if err != nil {
		return err
	}

	if err := configMgr.AddSource(newSource); err != nil {
		return fmt.Errorf("failed to add source: %w", err)
	}

	fmt.Printf("Added source: %s\n", newSource.FullName())
	return nil
}

func runSourcesRemove(cmd *cobra.Command, args []string) error {
	configMgr, err := loadConfig()
	if err != nil {
		return err
	}

	if err := configMgr.RemoveSource(args[0]); err != nil {
		return err
	}

	fmt.Printf("Removed source: %s\n", args[0])
	return nil
}
