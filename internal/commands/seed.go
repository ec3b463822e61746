package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/minutes-tracker/internal/clock"
	"github.com/BuzzLyutic/minutes-tracker/internal/model"
	"github.com/BuzzLyutic/minutes-tracker/internal/repo"
)

var DefaultTeams = []string{
	"Creative", "CC", "NCF", "SS", "Research", "Marketing", "Gems",
	"Tech", "Finance", "Gifts", "HR", "Strategy", "Coordinators",
}

type SeedOptions struct {
	AdminEmail string
	AdminName  string
	Teams      []string
}

type SeedResult struct {
	Admin        model.User
	CreatedTeams []string
}

var seedOpts SeedOptions

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the initial admin user and teams",
	Long: `seed creates the admin user and one team per --team, each with a
"<Name> Meeting Room" default venue. Existing users and teams are left alone.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		_, logger, store, err := setup(ctx)
		if err != nil {
			return err
		}
		defer logger.Sync()
		defer store.Close()

		if err := store.Migrate(ctx); err != nil {
			return err
		}
		res, err := Seed(ctx, store, clock.System{}, seedOpts)
		if err != nil {
			return err
		}
		logger.Info("Seed complete",
			zap.String("admin", res.Admin.Email),
			zap.Strings("created_teams", res.CreatedTeams),
		)
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedOpts.AdminEmail, "admin-email", "admin@example.com", "email of the admin user")
	seedCmd.Flags().StringVar(&seedOpts.AdminName, "admin-name", "Administrator", "display name of the admin user")
	seedCmd.Flags().StringSliceVar(&seedOpts.Teams, "team", DefaultTeams, "team to create (repeatable)")
}

// Seed is idempotent: running it twice creates nothing the second time.
func Seed(ctx context.Context, store repo.Store, clk clock.Clock, opts SeedOptions) (SeedResult, error) {
	if opts.AdminEmail == "" {
		return SeedResult{}, errors.New("seed: admin email is required")
	}
	now := clk.Now().UTC().Truncate(time.Microsecond)
	var res SeedResult

	err := store.InTx(ctx, func(q repo.Queries) error {
		admin, err := q.GetUserByEmail(ctx, opts.AdminEmail)
		if errors.Is(err, repo.ErrorNotFound) {
			name := opts.AdminName
			admin, err = q.CreateUser(ctx, model.User{
				ID:          uuid.NewString(),
				Email:       opts.AdminEmail,
				DisplayName: &name,
				IsAdmin:     true,
				CreatedAt:   now,
				UpdatedAt:   now,
			})
		}
		if err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
		res.Admin = admin

		existing, err := q.ListTeams(ctx)
		if err != nil {
			return err
		}
		have := make(map[string]bool, len(existing))
		for _, t := range existing {
			have[t.Name] = true
		}

		for _, name := range opts.Teams {
			if name == "" || have[name] {
				continue
			}
			venue := name + " Meeting Room"
			if _, err := q.CreateTeam(ctx, model.Team{
				ID:           uuid.NewString(),
				Name:         name,
				DefaultVenue: &venue,
				CreatedAt:    now,
				UpdatedAt:    now,
			}); err != nil {
				return fmt.Errorf("seed team %s: %w", name, err)
			}
			have[name] = true
			res.CreatedTeams = append(res.CreatedTeams, name)
		}
		return nil
	})
	return res, err
}
