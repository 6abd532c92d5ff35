package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/beka-birhanu/navstudy/game"
	"github.com/beka-birhanu/navstudy/game/maze"
	"github.com/beka-birhanu/navstudy/game/play"
	"github.com/beka-birhanu/navstudy/game/queue"
	"github.com/beka-birhanu/navstudy/game/rng"
	"github.com/beka-birhanu/navstudy/infrastruture/sqlite"
	"github.com/beka-birhanu/navstudy/infrastruture/terminal"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

const closeTimeout = 30 * time.Second

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("navstudy version %s\n", version)
		},
	}
}

func newPlayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Run one session in the terminal",
		Long: `Run one session reading input from stdin.

During practice and learning every character of a line is one key press.
During planning every line is one submitted plan.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			participant, _ := cmd.Flags().GetString("participant")
			ctx := cmd.Context()

			closeBackends := initBackends(ctx)
			defer closeBackends()
			initSessionManager(terminal.NewRenderer(os.Stdout))

			s, err := sessionManager.Prepare(ctx, participant)
			if err != nil {
				return err
			}
			id, err := uuid.Parse(s.Meta().SessionID)
			if err != nil {
				return err
			}

			if err := playSession(ctx, id, s, os.Stdin); err != nil {
				return err
			}

			closeCtx, cancel := context.WithTimeout(ctx, closeTimeout)
			defer cancel()
			return sessionManager.Close(closeCtx)
		},
	}
	cmd.Flags().String("participant", "anonymous", "Participant identifier stored with the session")
	return cmd
}

// playSession feeds stdin lines into the session until it completes or input ends.
func playSession(ctx context.Context, id uuid.UUID, s *play.Session, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for s.Status().Phase != play.PhaseComplete && scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := handleLine(ctx, id, s, line); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	if s.Status().Phase != play.PhaseComplete {
		appLogger.Warning(fmt.Sprintf("Input ended before session %s completed", id))
	}
	return nil
}

// handleLine returns only fatal errors; rejected input is shown by the renderer.
func handleLine(ctx context.Context, id uuid.UUID, s *play.Session, line string) error {
	if s.Status().Phase == play.PhasePlanning {
		return fatalOnly(sessionManager.Handle(ctx, id, play.PlanInput{Plan: line, At: time.Now()}))
	}

	for _, key := range line {
		// A trial may end mid-line and hand over to planning.
		if phase := s.Status().Phase; phase != play.PhasePractice && phase != play.PhaseLearning {
			return nil
		}
		if err := fatalOnly(sessionManager.Handle(ctx, id, play.KeyInput{Key: string(key), At: time.Now()})); err != nil {
			return err
		}
	}
	return nil
}

func fatalOnly(err error) error {
	if err != nil && game.IsFatal(err) {
		return err
	}
	return nil
}

func newPoolCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pool",
		Short: "Print the maze pool of a phase",
		RunE: func(cmd *cobra.Command, args []string) error {
			phase, _ := cmd.Flags().GetString("phase")
			seed, _ := cmd.Flags().GetString("seed")

			q, err := buildQueue(phase, seed)
			if err != nil {
				return err
			}
			prefix, tag := study.Seeds.Learning, "learn"
			if phase == "plan" {
				prefix, tag = study.Seeds.Planning, "plan"
			}

			pool, err := maze.BuildPool(q.Specs, prefix, tag, &maze.PoolOptions{
				GridSize:    study.GridSize,
				MaxAttempts: study.MaxAttempts,
			})
			if err != nil {
				return err
			}
			for _, m := range pool {
				fmt.Printf("%s %s hazard=%t memory=%t route=%v\n%s\n",
					m.ID, m.Spec.Category, m.Spec.Hazard, m.Spec.Memory, m.OptimalDirections, m)
			}
			return nil
		},
	}
	cmd.Flags().String("phase", "learn", "Phase whose pool is printed: learn or plan")
	cmd.Flags().String("seed", "preview", "Session seed used to draw the learning queue")
	return cmd
}

func newQueueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Print the trial queue of a phase as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			phase, _ := cmd.Flags().GetString("phase")
			seed, _ := cmd.Flags().GetString("seed")

			q, err := buildQueue(phase, seed)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(q)
		},
	}
	cmd.Flags().String("phase", "learn", "Phase whose queue is printed: learn or plan")
	cmd.Flags().String("seed", "preview", "Session seed used to draw the learning queue")
	return cmd
}

func buildQueue(phase, seed string) (queue.Queue, error) {
	catalog, err := study.Catalog()
	if err != nil {
		return queue.Queue{}, err
	}
	quotas, err := study.Quotas()
	if err != nil {
		return queue.Queue{}, err
	}
	builder, err := queue.NewBuilder(catalog, quotas)
	if err != nil {
		return queue.Queue{}, err
	}

	switch phase {
	case "learn":
		return builder.Learning(rng.New(seed)), nil
	case "plan":
		return builder.Planning(), nil
	default:
		return queue.Queue{}, fmt.Errorf("unknown phase %q, want learn or plan", phase)
	}
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the trial rows of a session as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			sessionID, _ := cmd.Flags().GetString("session")
			initSQLite()
			if trialStore == nil {
				return errors.New("export needs SQLITE_PATH")
			}
			defer trialStore.Close()

			rows, err := trialStore.Trials(cmd.Context(), sessionID)
			if err != nil {
				return err
			}
			return sqlite.WriteCSV(os.Stdout, rows)
		},
	}
	cmd.Flags().String("session", "", "Session id")
	_ = cmd.MarkFlagRequired("session")
	return cmd
}

func newShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print a stored session export as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			sessionID, _ := cmd.Flags().GetString("session")
			ctx := cmd.Context()

			connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			defer cancel()
			initMongo(connectCtx)
			if sessionRepo == nil {
				return errors.New("show needs DB_HOST")
			}
			defer func() {
				_ = mongoClient.Disconnect(context.Background())
			}()

			export, err := sessionRepo.ByID(ctx, sessionID)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(export)
		},
	}
	cmd.Flags().String("session", "", "Session id")
	_ = cmd.MarkFlagRequired("session")
	return cmd
}
