package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/halcyon-labs/ragchat/internal/core/domain"
)

var collectionsCmd = &cobra.Command{
	Use:   "collections",
	Short: "Manage vector collections",
}

var collectionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List collections",
	RunE:  runCollectionsList,
}

var collectionsDeleteCmd = &cobra.Command{
	Use:   "delete [name]",
	Short: "Delete a collection and its vectors",
	Args:  cobra.ExactArgs(1),
	RunE:  runCollectionsDelete,
}

func init() {
	collectionsCmd.AddCommand(collectionsListCmd)
	collectionsCmd.AddCommand(collectionsDeleteCmd)
	rootCmd.AddCommand(collectionsCmd)
}

func runCollectionsList(cmd *cobra.Command, _ []string) error {
	if err := initServices(); err != nil {
		return err
	}

	names, err := vectorStore.ListCollections(cmd.Context())
	if err != nil {
		return fmt.Errorf("list collections: %w", err)
	}

	if len(names) == 0 {
		cmd.Println("No collections.")
		return nil
	}
	for _, name := range names {
		cmd.Println(name)
	}
	return nil
}

func runCollectionsDelete(cmd *cobra.Command, args []string) error {
	if err := initServices(); err != nil {
		return err
	}

	name := args[0]
	if err := vectorStore.DeleteCollection(cmd.Context(), name); err != nil {
		if errors.Is(err, domain.ErrCollectionNotFound) {
			return fmt.Errorf("collection %q not found", name)
		}
		return fmt.Errorf("delete collection: %w", err)
	}

	cmd.Printf("Deleted %q\n", name)
	return nil
}
