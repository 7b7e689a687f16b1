package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/heartmarshall/submission-backend/internal/auth"
	"github.com/heartmarshall/submission-backend/internal/config"
	"github.com/heartmarshall/submission-backend/internal/domain"
)

// IssuedToken is the output of token issue.
type IssuedToken struct {
	Token     string          `json:"token"     yaml:"token"`
	UserID    uuid.UUID       `json:"userId"    yaml:"userId"`
	Role      domain.UserRole `json:"role"      yaml:"role"`
	ExpiresIn string          `json:"expiresIn" yaml:"expiresIn"`
}

// NewTokenCommand creates the token command group.
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage access tokens",
	}
	cmd.AddCommand(newTokenIssueCommand(rootOpts))
	return cmd
}

func newTokenIssueCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		user string
		role string
	)

	cmd := &cobra.Command{
		Use:           "issue",
		Short:         "Issue an access token signed with the configured secret",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := uuid.Parse(user)
			if err != nil || userID == uuid.Nil {
				return &ExitError{Code: ExitCommandError, Message: "--user must be a non-nil UUID"}
			}
			cfg, err := config.LoadFile(rootOpts.Config)
			if err != nil {
				return WrapExitError(ExitCommandError, "load config", err)
			}

			issued, err := issueToken(cfg.Auth, userID, domain.UserRole(role))
			if err != nil {
				return WrapExitError(ExitCommandError, "issue token", err)
			}

			f := newFormatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			return f.Success(issued, func(w io.Writer) {
				fmt.Fprintln(w, issued.Token)
			})
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "UUID of the token subject")
	cmd.Flags().StringVar(&role, "role", string(domain.UserRoleUser), "role claim (user|admin)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func issueToken(cfg config.AuthConfig, userID uuid.UUID, role domain.UserRole) (IssuedToken, error) {
	jwt := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.AccessTokenTTL)
	token, err := jwt.GenerateAccessToken(userID, role)
	if err != nil {
		return IssuedToken{}, err
	}
	return IssuedToken{
		Token:     token,
		UserID:    userID,
		Role:      role,
		ExpiresIn: cfg.AccessTokenTTL.Round(time.Second).String(),
	}, nil
}
