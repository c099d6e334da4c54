package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"survey-runner/internal/app"
	"survey-runner/internal/config"
	"survey-runner/internal/domain"
	"survey-runner/internal/infra/memory"
	infraredis "survey-runner/internal/infra/redis"
)

// questionnaireFile is the on-disk questionnaire format for the run command:
// the questionnaire document plus an optional pre-translated prompt table
// keyed "<lang>:<prompt>".
type questionnaireFile struct {
	domain.Questionnaire
	Translations map[string]string `json:"translations,omitempty"`
}

func newRunCmd(configPath *string) *cobra.Command {
	var (
		file       string
		mode       string
		userID     string
		userName   string
		teamID     string
		teamName   string
		lang       string
		parentCode string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Answer a questionnaire interactively and submit the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			if mode != string(domain.SurveySubmission) && mode != string(domain.ExamSubmission) {
				return fmt.Errorf("--mode must be survey or exam")
			}
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			qf, err := loadQuestionnaire(file)
			if err != nil {
				return err
			}

			session := &runSession{
				cfg:        cfg,
				qn:         qf.Questionnaire,
				mode:       domain.SubmissionType(mode),
				lang:       lang,
				parentCode: parentCode,
				respondent: domain.Respondent{ID: userID, Name: userName},
				in:         bufio.NewScanner(cmd.InOrStdin()),
				out:        cmd.OutOrStdout(),
				translate:  newPromptTranslator(cmd.Context(), cfg, qf, lang),
			}
			if teamID != "" {
				session.team = &domain.Team{ID: teamID, Name: teamName}
			}

			sub, err := session.collect()
			if err != nil {
				return err
			}
			return session.deliver(cmd.Context(), *configPath, sub)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "path to the questionnaire JSON document")
	cmd.Flags().StringVar(&mode, "mode", string(domain.SurveySubmission), "survey or exam")
	cmd.Flags().StringVar(&userID, "user-id", "", "respondent id")
	cmd.Flags().StringVar(&userName, "user-name", "", "respondent display name")
	cmd.Flags().StringVar(&teamID, "team-id", "", "team id the submission belongs to")
	cmd.Flags().StringVar(&teamName, "team-name", "", "team display name")
	cmd.Flags().StringVar(&lang, "lang", "", "show prompts translated into this language")
	cmd.Flags().StringVar(&parentCode, "parent-code", "", "access code the questionnaire was opened with")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("user-id")
	return cmd
}

func loadQuestionnaire(path string) (questionnaireFile, error) {
	var qf questionnaireFile
	data, err := os.ReadFile(path)
	if err != nil {
		return qf, err
	}
	if err := json.Unmarshal(data, &qf); err != nil {
		return qf, fmt.Errorf("parse questionnaire: %w", err)
	}
	if len(qf.Questions) == 0 {
		return qf, fmt.Errorf("questionnaire %q has no questions", qf.ID)
	}
	return qf, nil
}

// newPromptTranslator builds the prompt translation function: identity when
// no language is requested, otherwise the file's translation table behind
// the redis cache when one is configured, behind the in-process cache when
// not. Translation failures fall back to the untranslated prompt.
func newPromptTranslator(ctx context.Context, cfg config.Config, qf questionnaireFile, lang string) func(index int, prompt string) string {
	if lang == "" {
		return func(_ int, prompt string) string { return prompt }
	}
	translator := memory.NewStaticTranslator(qf.Translations)
	ttl := config.TTLDuration(cfg.Translation.TTL, time.Hour)

	var cached func(ctx context.Context, surveyID string, questionIndex int, targetLang, text string) (string, error)
	if cfg.Redis.Addr != "" {
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		cached = infraredis.NewTranslationCache(client, translator, ttl).Translate
	} else {
		cached = memory.NewTranslationCache(translator, ttl).Translate
	}

	return func(index int, prompt string) string {
		translated, err := cached(ctx, qf.ID, index, lang, prompt)
		if err != nil {
			return prompt
		}
		return translated
	}
}

// runSession owns one interactive pass through a questionnaire.
type runSession struct {
	cfg        config.Config
	qn         domain.Questionnaire
	mode       domain.SubmissionType
	lang       string
	parentCode string
	respondent domain.Respondent
	team       *domain.Team
	in         *bufio.Scanner
	out        io.Writer
	translate  func(index int, prompt string) string
}

// collect walks the wizard to its terminal step and builds the submission.
func (s *runSession) collect() (domain.Submission, error) {
	answers := domain.NewAnswerStore(s.qn.Questions)
	start := time.Now()

	var wizard *app.Wizard
	wizard = app.NewWizard(s.qn, s.respondent, func(step app.Step) error {
		return s.collectStep(wizard, answers, step)
	})

	for {
		signal, err := wizard.Advance()
		if err != nil {
			var invalid *domain.ValidationError
			if errors.As(err, &invalid) {
				fmt.Fprintf(s.out, "%s\n", invalid)
				continue
			}
			return domain.Submission{}, err
		}
		if signal == app.SignalSubmit {
			break
		}
	}

	builder := app.NewBuilder(app.BuilderConfig{
		PassingThreshold: s.cfg.PassingThreshold(),
		DeviceName:       s.cfg.DeviceName(),
		DevicePlatform:   s.cfg.Device.Platform,
		Source:           "survey-runner",
	})
	return builder.Build(app.BuildRequest{
		Questionnaire: s.qn,
		Answers:       answers,
		Respondent:    s.respondent,
		Team:          s.team,
		Mode:          s.mode,
		StartTime:     start,
		ParentCode:    s.parentCode,
	})
}

func (s *runSession) collectStep(wizard *app.Wizard, answers *domain.AnswerStore, step app.Step) error {
	switch step.Kind {
	case app.StepBasics:
		s.respondent.Gender = s.prompt("gender")
		s.respondent.AgeGroup = s.prompt("age group")
		if s.promptYesNo("share additional info?") {
			wizard.SetIncludeOptionalProfile(true)
		} else {
			wizard.SetIncludeOptionalProfile(false)
		}
		return nil
	case app.StepNames:
		s.respondent.FirstName = s.prompt("first name")
		s.respondent.LastName = s.prompt("last name")
		return nil
	case app.StepBirthDate:
		s.respondent.BirthDate = s.prompt("birth date (YYYY-MM-DD)")
		return nil
	case app.StepContact:
		s.respondent.Email = s.prompt("email (blank to skip)")
		s.respondent.Phone = s.prompt("phone (blank to skip)")
		if s.respondent.Email == "" && s.respondent.Phone == "" {
			return &domain.ValidationError{Field: "contact", Reason: "email or phone required"}
		}
		return nil
	case app.StepLanguageLevel:
		s.respondent.LanguageLevel = s.prompt("language level")
		return nil
	case app.StepQuestion:
		return s.collectAnswer(answers, step.Question)
	default:
		return fmt.Errorf("unknown step kind %d", step.Kind)
	}
}

func (s *runSession) collectAnswer(answers *domain.AnswerStore, index int) error {
	q := s.qn.Questions[index]
	fmt.Fprintf(s.out, "\n[%d/%d] %s\n", index+1, len(s.qn.Questions), s.translate(index, q.Prompt))

	switch q.Type {
	case domain.ShortText, domain.LongText:
		text := s.prompt("answer")
		if strings.TrimSpace(text) == "" {
			return &domain.ValidationError{Field: "answer", Reason: "must not be blank"}
		}
		return answers.Put(index, domain.TextAnswer{Value: text})

	case domain.SingleChoice:
		s.printChoices(q)
		option, err := s.readChoice(q, s.prompt("choice"))
		if err != nil {
			return err
		}
		return answers.Put(index, domain.SingleChoiceAnswer{Option: option})

	case domain.MultiChoice:
		s.printChoices(q)
		raw := s.prompt("choices (comma separated)")
		var options []domain.SelectedOption
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			option, err := s.readChoice(q, part)
			if err != nil {
				return err
			}
			options = append(options, *option)
		}
		if len(options) == 0 {
			return &domain.ValidationError{Field: "choices", Reason: "select at least one"}
		}
		return answers.Put(index, domain.MultiChoiceAnswer{Options: options})

	case domain.RatingScale:
		score, err := strconv.Atoi(s.prompt("rating"))
		if err != nil {
			return &domain.ValidationError{Field: "rating", Reason: "must be a number"}
		}
		return answers.Put(index, domain.RatingAnswer{Score: score})

	default:
		return fmt.Errorf("unsupported question type %q", q.Type)
	}
}

func (s *runSession) printChoices(q domain.Question) {
	for i, choice := range q.Choices {
		fmt.Fprintf(s.out, "  %d) %s\n", i+1, choice.Label)
	}
	if q.HasOther {
		fmt.Fprintf(s.out, "  o <text>) something else\n")
	}
}

// readChoice maps "3" to the third listed choice and "o <text>" to an
// other-option when the question allows one.
func (s *runSession) readChoice(q domain.Question, raw string) (*domain.SelectedOption, error) {
	raw = strings.TrimSpace(raw)
	if q.HasOther && strings.HasPrefix(raw, "o ") {
		text := strings.TrimSpace(strings.TrimPrefix(raw, "o "))
		if text == "" {
			return nil, &domain.ValidationError{Field: "choice", Reason: "other text must not be blank"}
		}
		option := domain.OtherOption(text)
		return &option, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > len(q.Choices) {
		return nil, &domain.ValidationError{Field: "choice", Reason: fmt.Sprintf("pick a number between 1 and %d", len(q.Choices))}
	}
	choice := q.Choices[n-1]
	return &domain.SelectedOption{ID: choice.ID, Label: choice.Label}, nil
}

func (s *runSession) prompt(label string) string {
	fmt.Fprintf(s.out, "%s: ", label)
	if !s.in.Scan() {
		return ""
	}
	return strings.TrimSpace(s.in.Text())
}

func (s *runSession) promptYesNo(label string) bool {
	answer := strings.ToLower(s.prompt(label + " [y/N]"))
	return answer == "y" || answer == "yes"
}

// deliver submits the built payload, reporting whether it reached the store
// or landed in the local queue.
func (s *runSession) deliver(ctx context.Context, configPath string, sub domain.Submission) error {
	outbox, gateway, cleanup, err := openEnv(configPath)
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := app.NewDeliveryService(gateway, outbox, nil).Submit(ctx, sub)
	if err != nil {
		return err
	}
	switch result.Outcome {
	case app.Delivered:
		fmt.Fprintf(s.out, "submitted as %s (rev %s)\n", result.Ref.ID, result.Ref.Rev)
	case app.Queued:
		fmt.Fprintf(s.out, "store unreachable; saved to the outbox as entry %d\n", result.LocalID)
	}
	return nil
}
