package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/garyjia/pto-workflow/internal/application/workflow"
	"github.com/garyjia/pto-workflow/internal/container"
	domainwf "github.com/garyjia/pto-workflow/internal/domain/workflow"
	"github.com/garyjia/pto-workflow/pkg/utils"
)

var (
	actingUser   string
	comment      string
	docType      string
	docProject   string
	docLocation  string
	outputAsJSON bool
)

var createCmd = &cobra.Command{
	Use:   "create <document-id>",
	Short: "Create a document in DRAFT",
	Args:  cobra.ExactArgs(1),
	RunE:  runCreate,
}

var transitionCmd = &cobra.Command{
	Use:   "transition <document-id> <action>",
	Short: "Request a workflow action on a document",
	Long: `Request SUBMIT, APPROVE, REJECT, SIGN, REVISE or ARCHIVE on behalf of
the user given with --as.`,
	Args: cobra.ExactArgs(2),
	RunE: runTransition,
}

var statusCmd = &cobra.Command{
	Use:   "status <document-id>",
	Short: "Show the current status of a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

var timelineCmd = &cobra.Command{
	Use:   "timeline <document-id>",
	Short: "Show the audit trail of a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runTimeline,
}

var verifyCmd = &cobra.Command{
	Use:   "verify <document-id>",
	Short: "Replay a document's history and check it is consistent",
	Args:  cobra.ExactArgs(1),
	RunE:  runVerify,
}

func init() {
	for _, c := range []*cobra.Command{createCmd, transitionCmd} {
		c.Flags().StringVar(&actingUser, "as", "", "acting user id (required)")
		c.Flags().StringVarP(&comment, "comment", "m", "", "comment recorded with the transition")
		_ = c.MarkFlagRequired("as")
	}
	createCmd.Flags().StringVarP(&docType, "type", "t", "", "document type (required)")
	createCmd.Flags().StringVarP(&docProject, "project", "p", "", "project id (required)")
	createCmd.Flags().StringVarP(&docLocation, "location", "l", "", "location id")
	_ = createCmd.MarkFlagRequired("type")
	_ = createCmd.MarkFlagRequired("project")

	for _, c := range []*cobra.Command{createCmd, transitionCmd, statusCmd, timelineCmd} {
		c.Flags().BoolVar(&outputAsJSON, "json", false, "print JSON")
	}

	rootCmd.AddCommand(createCmd, transitionCmd, statusCmd, timelineCmd, verifyCmd)
}

func commentFlag() (*string, error) {
	if comment == "" {
		return nil, nil
	}
	return utils.NormalizeComment(&comment)
}

func runCreate(cmd *cobra.Command, args []string) error {
	id := args[0]
	if err := utils.ValidateIdentifier("document id", id); err != nil {
		return err
	}
	if err := utils.ValidateIdentifier("project id", docProject); err != nil {
		return err
	}
	note, err := commentFlag()
	if err != nil {
		return err
	}

	var location *string
	if docLocation != "" {
		location = &docLocation
	}

	return withContainer(cmd, func(ctx context.Context, c *container.Container) error {
		doc, result, err := c.Services().Workflow.CreateDocument(ctx, workflow.NewDocument{
			ID:           id,
			DocumentType: docType,
			ProjectID:    docProject,
			LocationID:   location,
		}, actingUser, note)
		if err != nil {
			return err
		}

		if outputAsJSON {
			return printJSON(cmd.OutOrStdout(), map[string]interface{}{
				"document":   doc,
				"transition": result.Transition,
			})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created %s in project %s: %s (#%d)\n",
			doc.ID, doc.ProjectID, result.Transition.ToStatus, result.Transition.SequenceNumber)
		return nil
	})
}

func runTransition(cmd *cobra.Command, args []string) error {
	action, err := domainwf.ParseAction(args[1])
	if err != nil {
		return err
	}
	note, err := commentFlag()
	if err != nil {
		return err
	}

	return withContainer(cmd, func(ctx context.Context, c *container.Container) error {
		result, err := c.Services().Workflow.RequestTransition(ctx, workflow.Request{
			DocumentID:  args[0],
			Action:      action,
			PrincipalID: actingUser,
			Comment:     note,
		})
		if err != nil {
			return err
		}

		tr := result.Transition
		if outputAsJSON {
			return printJSON(cmd.OutOrStdout(), tr)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s -> %s (#%d)\n", tr.Action, tr.FromStatus, tr.ToStatus, tr.SequenceNumber)
		return nil
	})
}

func runStatus(cmd *cobra.Command, args []string) error {
	return withContainer(cmd, func(ctx context.Context, c *container.Container) error {
		view, err := c.Services().Projections.Document(ctx, args[0])
		if err != nil {
			return err
		}

		if outputAsJSON {
			return printJSON(cmd.OutOrStdout(), view)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Document: %s\n", view.ID)
		fmt.Fprintf(out, "Type: %s\n", view.DocumentType)
		fmt.Fprintf(out, "Project: %s\n", view.ProjectID)
		if view.LocationID != nil {
			fmt.Fprintf(out, "Location: %s\n", *view.LocationID)
		}
		fmt.Fprintf(out, "Status: %s\n", view.Status)
		fmt.Fprintf(out, "Updated: %s\n", view.UpdatedAt.Format(time.RFC3339))
		return nil
	})
}

func runTimeline(cmd *cobra.Command, args []string) error {
	return withContainer(cmd, func(ctx context.Context, c *container.Container) error {
		timeline, err := c.Services().Projections.Timeline(ctx, args[0])
		if err != nil {
			return err
		}

		if outputAsJSON {
			return printJSON(cmd.OutOrStdout(), timeline)
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "#\tACTION\tFROM\tTO\tBY\tAT\tCOMMENT")
		for _, e := range timeline {
			note := ""
			if e.Comment != nil {
				note = *e.Comment
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
				e.SequenceNumber, e.Action, e.FromStatus, e.ToStatus, e.PerformedBy,
				e.OccurredAt.Format(time.RFC3339), note)
		}
		return w.Flush()
	})
}

func runVerify(cmd *cobra.Command, args []string) error {
	return withContainer(cmd, func(ctx context.Context, c *container.Container) error {
		if err := c.Services().Projections.Verify(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: history is consistent\n", args[0])
		return nil
	})
}
