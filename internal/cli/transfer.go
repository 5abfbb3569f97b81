package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"kwsearch/internal/adapter/snapshot"
	"kwsearch/internal/usecase"
)

var exportCompression string

var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Write the index to a portable snapshot file",
	Long: `Write the persisted index to a single checksummed snapshot file that can
be copied to another machine and loaded with 'kwsearch import'.

Examples:
  kwsearch export movies.kwsx
  kwsearch export movies.kwsx --compression lz4`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := GetConfig().Index.Compression
		if cmd.Flags().Changed("compression") {
			name = exportCompression
		}
		tag, err := snapshot.ParseCompressionTag(name)
		if err != nil {
			return err
		}
		tokenizer, err := newTokenizer()
		if err != nil {
			return err
		}

		stats, err := usecase.Export(newIndexStore(), tokenizer, args[0], tag)
		if err != nil {
			return err
		}
		fmt.Printf("Exported %d documents and %d terms to %s (%s)\n", stats.Documents, stats.Terms, args[0], tag)
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace the index with a snapshot file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tokenizer, err := newTokenizer()
		if err != nil {
			return err
		}
		if err := GetConfig().EnsureIndexDir(GetRootDir()); err != nil {
			return fmt.Errorf("failed to create index directory: %w", err)
		}

		stats, err := usecase.Import(newIndexStore(), tokenizer, args[0], lockForBuild())
		if err != nil {
			return err
		}
		fmt.Printf("Imported %d documents and %d terms into %s\n", stats.Documents, stats.Terms, GetConfig().IndexDBPath(GetRootDir()))
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportCompression, "compression", "", "payload compression: none, lz4 or zstd (default from config)")
	rootCmd.AddCommand(exportCmd, importCmd)
}
