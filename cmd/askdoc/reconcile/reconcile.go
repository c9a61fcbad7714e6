// Package reconcilecmder provides the reconcile command for repairing
// metadata left behind by interrupted deletions.
package reconcilecmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/askdocco/askdoc/cmd/askdoc/wiring"
	"github.com/askdocco/askdoc/pkg/config"
	"github.com/askdocco/askdoc/pkg/consistency"
	"github.com/askdocco/askdoc/pkg/doclock"
	"github.com/askdocco/askdoc/pkg/eventstream/nop"
	"github.com/askdocco/askdoc/pkg/logger"
)

type reconcileCommander struct {
	userID string
	debug  bool
	logger *zap.Logger
}

const reconcileLongDesc string = `Scan a user's documents and remove metadata rows whose vectors are gone.

Deletion removes vectors before metadata, so a crash between the two can
leave a document record with no vectors behind it. Reconcile finds and
removes those records.`

const reconcileShortDesc string = "Remove document metadata whose vectors are gone"

func NewReconcileCmd() *cobra.Command {
	cmder := &reconcileCommander{}

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: reconcileShortDesc,
		Long:  reconcileLongDesc,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}

			configDir, err := cmd.Flags().GetString("config")
			if err != nil {
				return fmt.Errorf("could not get config flag: %v", err)
			}

			return cmder.run(configDir)
		},
	}

	cmd.Flags().StringVarP(&cmder.userID, "user", "u", "", "User whose documents to reconcile (required)")
	cmd.MarkFlagRequired("user")

	return cmd
}

func (c *reconcileCommander) run(configDir string) error {
	v, err := config.InitViper(configDir)
	if err != nil {
		return err
	}

	cfg, err := config.Load(v)
	if err != nil {
		return err
	}

	c.logger = logger.NewLogger(c.debug || cfg.Debug)
	defer c.logger.Sync()

	ctx := context.Background()

	store, err := wiring.NewStore(ctx, cfg, c.logger)
	if err != nil {
		return err
	}
	defer store.Close()

	index, err := wiring.NewIndex(cfg, c.logger)
	if err != nil {
		return err
	}
	defer index.Close()

	manager := consistency.NewManager(store, index, doclock.NewKeyed(), nop.NewPublisher(), c.logger)

	repaired, err := manager.Reconcile(ctx, c.userID)
	if err != nil {
		return fmt.Errorf("reconciling: %w", err)
	}

	if len(repaired) == 0 {
		fmt.Println("nothing to repair")
		return nil
	}

	for _, id := range repaired {
		fmt.Printf("removed dangling metadata for document %s\n", id)
	}

	return nil
}
