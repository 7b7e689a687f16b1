package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/heartmarshall/submission-backend/internal/app"
	"github.com/heartmarshall/submission-backend/internal/config"
	"github.com/heartmarshall/submission-backend/internal/dictgraph"
	"github.com/heartmarshall/submission-backend/internal/domain"
	"github.com/heartmarshall/submission-backend/internal/service/dictionary"
	"github.com/heartmarshall/submission-backend/pkg/ctxutil"
)

const shutdownTimeout = 10 * time.Second

// NewDictionaryCommand creates the dictionary command group.
func NewDictionaryCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dictionary",
		Short: "Register and inspect dictionaries",
	}
	cmd.AddCommand(newDictionaryRegisterCommand(rootOpts))
	cmd.AddCommand(newDictionaryGraphCommand(rootOpts))
	return cmd
}

func newDictionaryRegisterCommand(rootOpts *RootOptions) *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:           "register <file>",
		Short:         "Validate a dictionary file and store it as a new version",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := uuid.Parse(user)
			if err != nil || userID == uuid.Nil {
				return &ExitError{Code: ExitCommandError, Message: "--user must be a non-nil UUID"}
			}
			dict, err := LoadDictionary(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "load dictionary", err)
			}
			cfg, err := config.LoadFile(rootOpts.Config)
			if err != nil {
				return WrapExitError(ExitCommandError, "load config", err)
			}

			f := newFormatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			f.VerboseLog("registering %s@%s with %d schemas", dict.Name, dict.Version, len(dict.Schemas))

			registered, err := registerDictionary(cmd.Context(), cfg, userID, dict)
			if err != nil {
				return WrapExitError(ExitFailure, "register dictionary", err)
			}
			return f.Success(registered, func(w io.Writer) {
				fmt.Fprintf(w, "registered %s@%s as %s\n", registered.Name, registered.Version, registered.ID)
			})
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "UUID recorded as the dictionary author")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func registerDictionary(ctx context.Context, cfg *config.Config, userID uuid.UUID, dict domain.Dictionary) (domain.Dictionary, error) {
	a, err := app.New(ctx, cfg, app.NewLogger(cfg.Log))
	if err != nil {
		return domain.Dictionary{}, err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = a.Shutdown(sctx)
	}()

	ctx = ctxutil.WithAdmin(ctxutil.WithUserID(ctx, userID))
	return a.Dictionaries.Register(ctx, dictionary.RegisterInput{Dictionary: dict})
}

func newDictionaryGraphCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "graph <file>",
		Short:         "Print the dependency graph of a dictionary file",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			dict, err := LoadDictionary(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "load dictionary", err)
			}
			input := dictionary.RegisterInput{Dictionary: dict}
			if err := input.Validate(); err != nil {
				return WrapExitError(ExitFailure, "invalid dictionary", err)
			}
			if err := dictgraph.ValidateAcyclic(dict.Schemas); err != nil {
				return WrapExitError(ExitFailure, "invalid dictionary", err)
			}

			view := dictgraph.Build(&dict).View()
			f := newFormatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			return f.Success(view, func(w io.Writer) { printGraph(w, view) })
		},
	}
}

func printGraph(w io.Writer, view dictgraph.View) {
	fmt.Fprintln(w, "children:")
	parents := make([]string, 0, len(view.Children))
	for name := range view.Children {
		parents = append(parents, name)
	}
	sort.Strings(parents)
	for _, parent := range parents {
		for _, c := range view.Children[parent] {
			fmt.Fprintf(w, "  %s.%s <- %s.%s\n", parent, c.ParentFieldName, c.SchemaName, c.FieldName)
		}
	}

	fmt.Fprintln(w, "hierarchy:")
	for _, root := range view.Desc {
		printTree(w, root, 1)
	}
}

func printTree(w io.Writer, n *dictgraph.TreeNode, depth int) {
	link := ""
	if n.FieldName != "" {
		link = fmt.Sprintf(" (%s -> %s)", n.FieldName, n.ParentFieldName)
	}
	fmt.Fprintf(w, "%s%s%s\n", strings.Repeat("  ", depth), n.SchemaName, link)
	for _, c := range n.Children {
		printTree(w, c, depth+1)
	}
}
