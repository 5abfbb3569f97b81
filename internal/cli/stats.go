package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := openEngine(engineOptions{params: searchParams()})
		if err != nil {
			return err
		}
		stats, err := engine.Stats()
		if err != nil {
			return err
		}

		if statsJSON {
			output, _ := json.MarshalIndent(stats, "", "  ")
			fmt.Println(string(output))
			return nil
		}
		fmt.Printf("Documents:      %d\n", stats.Documents)
		fmt.Printf("Terms:          %d\n", stats.Terms)
		fmt.Printf("Avg doc length: %s\n", formatScore(stats.AvgDocLength))
		fmt.Printf("Analyzer:       %s\n", stats.Analyzer)
		fmt.Printf("Built at:       %s\n", stats.BuiltAt.Local().Format(time.RFC3339))
		fmt.Printf("Index:          %s\n", GetConfig().IndexDBPath(GetRootDir()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "output as JSON")
}
