package main

import (
	"bufio"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"gitlab.com/dirk.krummacker/person-directory/internal/form"
	"gitlab.com/dirk.krummacker/person-directory/internal/gateway"
	"gitlab.com/dirk.krummacker/person-directory/internal/render"
	"gitlab.com/dirk.krummacker/person-directory/internal/validation"
	"gitlab.com/dirk.krummacker/person-directory/pkg/model"
)

// errReported marks errors that were already shown to the user as a notice.
var errReported = errors.New("request failed")

func (c *cli) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every person",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.app.Start(cmd.Context()); err != nil {
				return c.reported(err)
			}
			c.printDirectory(cmd.OutOrStdout())
			return nil
		},
	}
}

func (c *cli) searchCmd() *cobra.Command {
	var criteria model.SearchCriteria
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search persons by last name, first name or phone",
		Long: "search lists the persons matching every given criterion. Names match case-insensitively " +
			"by substring and spaces in the phone are ignored. Without criteria every person is listed.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.app.Directory.Search(cmd.Context(), criteria); err != nil {
				return c.reported(err)
			}
			c.printDirectory(cmd.OutOrStdout())
			return nil
		},
	}
	cmd.Flags().StringVar(&criteria.LastName, validation.FieldLastName.String(), "", "last name contains")
	cmd.Flags().StringVar(&criteria.FirstName, validation.FieldFirstName.String(), "", "first name contains")
	cmd.Flags().StringVar(&criteria.Phone, validation.FieldPhone.String(), "", "phone contains")
	return cmd
}

func (c *cli) createCmd() *cobra.Command {
	values := map[validation.Field]*string{}
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a person",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.app.NewRecord(); err != nil {
				return c.fail(cmd, err)
			}
			return c.submit(cmd, changedValues(cmd, values))
		},
	}
	recordFlags(cmd, values)
	return cmd
}

func (c *cli) updateCmd() *cobra.Command {
	values := map[validation.Field]*string{}
	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Update the fields of a person given as flags",
		Long:  "update changes the given fields of the person ID and keeps the others. An empty value clears an optional field.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return c.fail(cmd, err)
			}
			if err := c.app.Start(cmd.Context()); err != nil {
				return c.reported(err)
			}
			if err := c.app.Edit(id); err != nil {
				return c.fail(cmd, err)
			}
			return c.submit(cmd, changedValues(cmd, values))
		},
	}
	recordFlags(cmd, values)
	return cmd
}

func (c *cli) deleteCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a person after confirmation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return c.fail(cmd, err)
			}
			if err := c.app.Start(cmd.Context()); err != nil {
				return c.reported(err)
			}
			if err := c.app.Delete(id); err != nil {
				return c.fail(cmd, err)
			}
			pending := c.app.Directory.View().PendingDelete
			if !yes && !confirm(cmd, render.DeletePrompt(*pending)) {
				c.app.Directory.CancelDelete()
				fmt.Fprintln(cmd.OutOrStdout(), "canceled")
				return nil
			}
			if err := c.app.Directory.ConfirmDelete(cmd.Context()); err != nil {
				return c.reported(err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "delete without asking")
	return cmd
}

// submit types values into the open form and submits it. Validation errors are printed per
// field; backend errors have already been shown as a notice.
func (c *cli) submit(cmd *cobra.Command, values map[validation.Field]string) error {
	if _, err := c.app.Fill(values); err != nil {
		return c.fail(cmd, err)
	}
	err := c.app.Form.Submit(cmd.Context())
	var verr *validation.ValidationError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &verr):
		errs := c.app.Form.Errors()
		for _, f := range validation.Fields {
			if reason := errs.Get(f); reason != validation.ReasonNone {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", f, c.styles.Error.Render(reason.Message(f)))
			}
		}
		return err
	case errors.Is(err, form.ErrClosed), errors.Is(err, form.ErrSubmitting):
		return c.fail(cmd, err)
	default:
		return c.reported(err)
	}
}

// reported passes on err, which the controllers already turned into a notice.
func (c *cli) reported(err error) error {
	var (
		gerr *gateway.GatewayError
		nerr *gateway.NetworkError
	)
	if errors.As(err, &gerr) || errors.As(err, &nerr) {
		return fmt.Errorf("%w: %w", errReported, err)
	}
	return err
}

// recordFlags registers one string flag per record field, named like the JSON field.
func recordFlags(cmd *cobra.Command, values map[validation.Field]*string) {
	for _, f := range validation.Fields {
		values[f] = cmd.Flags().String(f.String(), "", f.Label())
	}
}

// changedValues returns the fields whose flag was given on the command line.
func changedValues(cmd *cobra.Command, values map[validation.Field]*string) map[validation.Field]string {
	changed := map[validation.Field]string{}
	for f, v := range values {
		if cmd.Flags().Changed(f.String()) {
			changed[f] = *v
		}
	}
	return changed
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", arg)
	}
	return id, nil
}

// confirm asks question on the output stream and reads the answer from the input stream.
func confirm(cmd *cobra.Command, question string) bool {
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N] ", question)
	answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}
