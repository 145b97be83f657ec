package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var topicsCmd = &cobra.Command{
	Use:   "topics [query]",
	Short: "List topics used in the journal",
	Long:  `List every topic in alphabetical order, or only those containing query.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newStoreApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		stream := a.store.ObserveTopics(ctx)
		if len(args) == 1 {
			stream = a.store.SearchTopics(ctx, args[0])
		}
		topics, ok := <-stream
		if !ok {
			return fmt.Errorf("failed to load topics")
		}

		for _, t := range topics {
			fmt.Println(t)
		}
		return nil
	},
}
