package cli

import (
	"errors"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/pkg/jwt"
)

// TokenIssued 签发结果
type TokenIssued struct {
	Token     string `json:"token"`
	ActorID   string `json:"actor_id"`
	Role      string `json:"role"`
	ExpiresAt string `json:"expires_at"`
}

// TokenRevoked 吊销结果
type TokenRevoked struct {
	JTI       string `json:"jti"`
	ActorID   string `json:"actor_id"`
	Revoked   bool   `json:"revoked"`
	ExpiresAt string `json:"expires_at,omitempty"`
}

// NewTokenCommand 服务账号 Token 子命令组
func NewTokenCommand(rootOpts *RootOptions, factory RuntimeFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "服务账号 Token 签发与吊销",
	}
	cmd.AddCommand(newTokenIssueCommand(rootOpts, factory))
	cmd.AddCommand(newTokenRevokeCommand(rootOpts, factory))
	return cmd
}

func newTokenIssueCommand(rootOpts *RootOptions, factory RuntimeFactory) *cobra.Command {
	var (
		subject string
		role    string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "issue",
		Short: "为优化器、预加载或协调员服务账号签发 Token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			switch role {
			case jwt.RoleCoordinator, jwt.RoleFaculty, jwt.RoleFeed:
			default:
				return f.fail(NewExitError(ExitCommandError, "--role 只能是 coordinator、faculty 或 feed"), nil)
			}
			if subject == "" {
				return f.fail(NewExitError(ExitCommandError, "必须指定 --subject"), nil)
			}

			return withRuntime(rootOpts, factory, false, func(rt *Runtime) error {
				effective := ttl
				if effective <= 0 {
					effective = rt.Config.Auth.AccessTokenTTL
				}
				token, err := rt.Tokens.GenerateToken(subject, role, effective)
				if err != nil {
					return f.fail(err, nil)
				}
				return f.Success(TokenIssued{
					Token:     token,
					ActorID:   subject,
					Role:      role,
					ExpiresAt: time.Now().UTC().Add(effective).Format(time.RFC3339),
				})
			})
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "操作人 ID（写入审计字段）")
	cmd.Flags().StringVar(&role, "role", jwt.RoleFeed, "角色 (coordinator|faculty|feed)")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "有效期（默认 auth.access_token_ttl）")
	return cmd
}

func newTokenRevokeCommand(rootOpts *RootOptions, factory RuntimeFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <token>",
		Short: "吊销 Token，直到其自然过期",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			return withRuntime(rootOpts, factory, false, func(rt *Runtime) error {
				claims, err := rt.Tokens.ParseToken(args[0])
				if errors.Is(err, jwt.ErrTokenExpired) {
					return f.Success(TokenRevoked{Revoked: false})
				}
				if err != nil {
					return f.fail(WrapExitError(ExitCommandError, "解析 Token 失败", err), nil)
				}
				if claims.ExpiresAt == nil {
					return f.fail(NewExitError(ExitCommandError, "Token 缺少过期时间"), nil)
				}
				if rt.Revoker == nil {
					return f.fail(NewExitError(ExitCommandError, "Redis 未启用，无法吊销 Token"), nil)
				}

				expiresAt := claims.ExpiresAt.Time
				if err := rt.Revoker.RevokeToken(cmd.Context(), claims.ID, time.Until(expiresAt)); err != nil {
					return f.fail(WrapExitError(ExitCommandError, "写入吊销列表失败", err), nil)
				}
				rt.Logger.Info("Token 已吊销",
					zap.String("jti", claims.ID),
					zap.String("actor_id", claims.ActorID),
					zap.String("by", rootOpts.Actor),
				)
				return f.Success(TokenRevoked{
					JTI:       claims.ID,
					ActorID:   claims.ActorID,
					Revoked:   true,
					ExpiresAt: expiresAt.UTC().Format(time.RFC3339),
				})
			})
		},
	}
}
