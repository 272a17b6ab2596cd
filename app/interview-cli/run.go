package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/yoockh/mockinterview/config"
	"github.com/yoockh/mockinterview/internal/audio"
	"github.com/yoockh/mockinterview/internal/feedback"
	"github.com/yoockh/mockinterview/internal/logger"
	"github.com/yoockh/mockinterview/internal/media"
	"github.com/yoockh/mockinterview/internal/models"
	"github.com/yoockh/mockinterview/internal/runloop"
	"github.com/yoockh/mockinterview/internal/sessionclient"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one interview",
	Long: `Run one interview.

Press Enter to submit the current answer early, "r" + Enter to retry a failed
upload and "q" + Enter (or Ctrl-C) to leave.`,
	Args: cobra.NoArgs,
	RunE: runInterview,
}

var (
	runMode          string
	runRef           string
	runQuestions     []string
	runQuestionsFile string
	runBudget        int
	runDebug         bool
	runOut           string
	runNoFeedback    bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runMode, "mode", "m", "ai", "Question source: ai (résumé driven, needs the service) or fixed")
	runCmd.Flags().StringVar(&runRef, "ref", "", "Session reference for ai mode (résumé or interview setup id)")
	runCmd.Flags().StringArrayVarP(&runQuestions, "question", "q", nil, "Question for fixed mode (repeatable)")
	runCmd.Flags().StringVar(&runQuestionsFile, "questions-file", "", "File with one fixed-mode question per line")
	runCmd.Flags().IntVar(&runBudget, "budget", 0, "Total answer time in seconds for the whole session (default from config)")
	runCmd.Flags().BoolVar(&runDebug, "debug", false, "Log run loop transitions to stderr")
	runCmd.Flags().StringVarP(&runOut, "out", "o", "interview-answers", "Directory for fixed-mode recordings")
	runCmd.Flags().BoolVar(&runNoFeedback, "no-feedback", false, "Do not wait for AI feedback after the interview")
}

func parseMode(s string) (models.Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ai", "resume", strings.ToLower(string(models.ModeAIResumeDriven)):
		return models.ModeAIResumeDriven, nil
	case "fixed", "list", strings.ToLower(string(models.ModeFixedList)):
		return models.ModeFixedList, nil
	default:
		return "", fmt.Errorf("unknown mode %q (want ai or fixed)", s)
	}
}

func loadQuestions(inline []string, path string) ([]string, error) {
	out := append([]string(nil), inline...)
	if path == "" {
		return out, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read questions file: %w", err)
	}
	for _, line := range strings.Split(string(b), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out, nil
}

func runInterview(cmd *cobra.Command, _ []string) error {
	appCfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.NewCLI(cmd.ErrOrStderr(), runDebug)

	mode, err := parseMode(runMode)
	if err != nil {
		return err
	}
	questions, err := loadQuestions(runQuestions, runQuestionsFile)
	if err != nil {
		return err
	}

	cfg := runloop.FromAppConfig(appCfg.Interview, appCfg.Client)
	cfg.Mode = mode
	cfg.SessionRef = runRef
	cfg.Questions = questions
	if cmd.Flags().Changed("budget") {
		cfg.AnswerBudget = time.Duration(runBudget) * time.Second
	}

	client := sessionclient.NewHTTPClient(appCfg.Client, log)
	deps := runloop.Deps{
		Media: media.NewManager(media.NewFFmpegPlatform(), log),
		Audio: audio.NewPlayer(audio.DefaultOutput(), log),
	}
	if mode == models.ModeAIResumeDriven {
		deps.Client = client
	}

	loop, err := runloop.New(cfg, deps, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	if err := loop.Start(ctx); err != nil {
		return err
	}
	go readKeys(cmd.InOrStdin(), loop)

	out := cmd.OutOrStdout()
	present(out, loop)
	final := loop.View()
	stop()

	switch {
	case mode == models.ModeFixedList:
		if final.Status == models.StatusCompleted {
			dir, err := saveAnswers(runOut, loop.LocalAnswers())
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Recordings saved to %s\n", dir)
		}
	case final.Status == models.StatusCompleted:
		if !runNoFeedback {
			showFeedback(cmd.Context(), out, appCfg.Client, client, log, final.SessionID)
		}
	case final.SessionID != "":
		endCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.EndSession(endCtx, final.SessionID); err != nil {
			log.WithError(err).Warn("could not mark the session as abandoned")
		}
	}

	if final.Err != nil && final.Status != models.StatusCompleted {
		return final.Err
	}
	return nil
}

type controls interface {
	SubmitNow()
	RetrySubmit()
	Exit()
}

// readKeys turns input lines into loop commands until the input closes.
func readKeys(in io.Reader, c controls) {
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		switch strings.ToLower(strings.TrimSpace(sc.Text())) {
		case "":
			c.SubmitNow()
		case "r", "retry":
			c.RetrySubmit()
		case "q", "quit", "exit":
			c.Exit()
			return
		}
	}
}

func showFeedback(ctx context.Context, out io.Writer, cc config.ClientConfig, client *sessionclient.HTTPClient, log *logrus.Logger, sessionID string) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	fmt.Fprintln(out, "Interview complete. Waiting for feedback (Ctrl-C to skip)...")
	sub, err := feedback.NewWatcher(cc, log).Watch(ctx, sessionID)
	if err != nil {
		log.WithError(err).Warn("feedback stream unavailable")
	} else {
		for ev := range sub.Events() {
			printEvent(out, ev)
		}
		if err := sub.Err(); err != nil && !errors.Is(err, context.Canceled) {
			log.WithError(err).Warn("feedback stream ended early")
		}
	}

	listCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	answers, err := client.ListAnswers(listCtx, sessionID)
	if err != nil {
		log.WithError(err).Warn("could not load the answer summary")
		return
	}
	printSummary(out, answers)
}
