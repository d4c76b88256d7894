package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"

	"github.com/neuradynamics/neurarag/pkg/agent"
	"github.com/neuradynamics/neurarag/pkg/chunker"
	"github.com/neuradynamics/neurarag/pkg/config"
	"github.com/neuradynamics/neurarag/pkg/embed"
	"github.com/neuradynamics/neurarag/pkg/eval"
	"github.com/neuradynamics/neurarag/pkg/llm"
	"github.com/neuradynamics/neurarag/pkg/pipeline"
	"github.com/neuradynamics/neurarag/pkg/prompt"
	"github.com/neuradynamics/neurarag/pkg/store"
)

var cli struct {
	Config   string `help:"Path to config file." type:"path"`
	Prompt   string `help:"Prompt template version override." short:"p"`
	NoRerank bool   `help:"Disable keyword reranking of retrieved chunks."`
	TopK     int    `help:"Override the number of chunks retrieved per query."`

	Index     IndexCmd     `cmd:"" help:"Rebuild the vector index from the document directory."`
	Query     QueryCmd     `cmd:"" help:"Ask a single question and exit."`
	Chat      ChatCmd      `cmd:"" help:"Interactive chat with conversation history."`
	Eval      EvalCmd      `cmd:"" help:"Run the evaluation question set and write a report."`
	Templates TemplatesCmd `cmd:"" help:"List available prompt template versions."`
}

type app struct {
	cfg    *config.Config
	logger *logrus.Logger
}

func main() {
	// Missing .env is fine; keys can come from the real environment.
	_ = godotenv.Load()

	ktx := kong.Parse(&cli,
		kong.Name("neurarag"),
		kong.Description("Retrieval-augmented question answering over policy documents."),
		kong.UsageOnError(),
	)

	cfg, err := config.LoadConfig(cli.Config)
	if err != nil {
		ktx.FatalIfErrorf(err)
	}
	applyOverrides(cfg)

	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			color.Red("config: %s", e.Error())
		}
		os.Exit(1)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		ktx.FatalIfErrorf(err)
	}

	ktx.FatalIfErrorf(ktx.Run(&app{cfg: cfg, logger: logger}))
}

func applyOverrides(cfg *config.Config) {
	if cli.Prompt != "" {
		cfg.Prompt.Version = cli.Prompt
	}
	if cli.NoRerank {
		rerank := false
		cfg.Retrieval.Rerank = &rerank
	}
	if cli.TopK > 0 {
		cfg.Retrieval.TopK = cli.TopK
	}
}

func newLogger(cfg *config.Config) (*logrus.Logger, error) {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Log.Level, err)
	}
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if cfg.Log.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Log.File), 0o755); err != nil {
			return nil, fmt.Errorf("creating log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		logger.SetOutput(f)
	}

	return logger, nil
}

func (a *app) buildEmbedder() (embed.Embedder, error) {
	switch a.cfg.Embedding.Provider {
	case "hash":
		return embed.NewHash(a.cfg.Store.VectorDim), nil
	default:
		return embed.NewOpenAI(embed.OpenAIConfig{
			APIKey:    a.cfg.Embedding.APIKey,
			BaseURL:   a.cfg.Embedding.BaseURL,
			Model:     a.cfg.Embedding.Model,
			RateLimit: a.cfg.Embedding.RateLimit,
		})
	}
}

func (a *app) buildGenerator(ctx context.Context, pc config.ProviderConfig) (llm.Generator, error) {
	switch pc.Provider {
	case "groq":
		return llm.NewGroq(llm.GroqConfig{
			APIKey:      pc.APIKey,
			BaseURL:     pc.BaseURL,
			Model:       pc.Model,
			Temperature: a.cfg.LLM.Temperature,
			MaxTokens:   a.cfg.LLM.MaxTokens,
		}), nil
	case "gemini":
		return llm.NewGemini(ctx, llm.GeminiConfig{
			APIKey:      pc.APIKey,
			Model:       pc.Model,
			Temperature: a.cfg.LLM.Temperature,
			MaxTokens:   a.cfg.LLM.MaxTokens,
		})
	case "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", pc.Provider)
	}
}

func (a *app) buildFallback(ctx context.Context) (*llm.Fallback, error) {
	primary, err := a.buildGenerator(ctx, a.cfg.LLM.Primary)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize primary provider: %w", err)
	}
	secondary, err := a.buildGenerator(ctx, a.cfg.LLM.Fallback)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize fallback provider: %w", err)
	}
	return llm.NewFallback(primary, secondary, a.logger), nil
}

// openIndex returns the current index plus the factory a rebuild uses to
// produce a fresh one. For the local store a rebuild writes a brand new
// directory snapshot; for pgvector it populates a staging table that is
// swapped over the live one on promote.
func (a *app) openIndex(ctx context.Context) (store.VectorIndex, pipeline.IndexFactory, error) {
	switch a.cfg.Store.Type {
	case "pgvector":
		pgConfig := store.PGVectorConfig{
			ConnString: a.cfg.Store.URL,
			TableName:  a.cfg.Store.TableName,
			VectorDim:  a.cfg.Store.VectorDim,
			BatchSize:  a.cfg.Store.BatchSize,
		}
		pg, err := store.NewPGVector(ctx, pgConfig)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize vector store: %w", err)
		}
		factory := func(ctx context.Context) (store.VectorIndex, error) {
			return store.NewPGVectorRebuild(ctx, pgConfig)
		}
		return pg, factory, nil
	default:
		idx, err := store.OpenLocal(a.cfg.Store.Path)
		if err != nil {
			return nil, nil, err
		}
		factory := func(context.Context) (store.VectorIndex, error) {
			return store.NewLocal(a.cfg.Store.Path), nil
		}
		return idx, factory, nil
	}
}

func (a *app) buildPipeline(ctx context.Context, onProgress func(done, total int)) (*pipeline.Pipeline, *llm.Fallback, error) {
	splitter, err := chunker.New(a.cfg.Chunker.ChunkSize, a.cfg.Chunker.ChunkOverlap, a.cfg.Chunker.LookBack)
	if err != nil {
		return nil, nil, err
	}

	embedder, err := a.buildEmbedder()
	if err != nil {
		return nil, nil, err
	}

	generator, err := a.buildFallback(ctx)
	if err != nil {
		return nil, nil, err
	}

	index, factory, err := a.openIndex(ctx)
	if err != nil {
		return nil, nil, err
	}

	p, err := pipeline.New(
		splitter,
		embedder,
		generator,
		prompt.NewRegistry(),
		index,
		factory,
		pipeline.Options{
			DataDir:       a.cfg.DataDir,
			TopK:          a.cfg.Retrieval.TopK,
			Rerank:        a.cfg.RerankEnabled(),
			PromptVersion: a.cfg.Prompt.Version,
			BatchSize:     a.cfg.Store.BatchSize,
			OnProgress:    onProgress,
		},
		a.logger,
	)
	if err != nil {
		index.Close()
		return nil, nil, err
	}
	return p, generator, nil
}

func (a *app) buildRouter(p *pipeline.Pipeline, model *llm.Fallback) *agent.Router {
	var classifier agent.Classifier
	if a.cfg.Agent.Classifier == "rules" {
		classifier = agent.RuleClassifier{}
	} else {
		classifier = agent.NewLLMClassifier(model)
	}
	return agent.NewRouter(classifier, p, a.cfg.Agent.HistorySize, a.logger)
}

func getProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("chunks"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

type IndexCmd struct{}

func (c *IndexCmd) Run(a *app) error {
	ctx := context.Background()

	var bar *progressbar.ProgressBar
	p, _, err := a.buildPipeline(ctx, func(done, total int) {
		if bar == nil {
			bar = getProgressBar(total, " Embedding chunks...")
		}
		bar.Set(done)
	})
	if err != nil {
		return err
	}
	defer p.Close()

	color.Cyan("Indexing documents from %s", a.cfg.DataDir)

	count, err := p.Rebuild(ctx)
	if err != nil {
		return err
	}
	if bar != nil {
		bar.Finish()
	}

	color.Green("\n✓ Indexed %d chunks", count)
	return nil
}

type QueryCmd struct {
	Question []string `arg:"" help:"The question to ask."`
	Scores   bool     `help:"Print per-chunk relevance scores."`
}

func (c *QueryCmd) Run(a *app) error {
	ctx := context.Background()

	p, model, err := a.buildPipeline(ctx, nil)
	if err != nil {
		return err
	}
	defer p.Close()

	router := a.buildRouter(p, model)

	answer, err := router.Respond(ctx, strings.Join(c.Question, " "))
	if err != nil {
		return err
	}

	printAnswer(answer.Text, answer.Sources, answer.Model)
	if c.Scores && len(answer.Scores) > 0 {
		fmt.Print("Scores: ")
		for i, s := range answer.Scores {
			if i > 0 {
				fmt.Print(", ")
			}
			fmt.Printf("%.4f", s)
		}
		fmt.Println()
	}
	return nil
}

func printAnswer(text string, sources []string, model string) {
	fmt.Printf("\n%s\n", text)
	if len(sources) > 0 {
		color.Yellow("\nSources: %s", strings.Join(sources, ", "))
	}
	if model != "" {
		color.Blue("Model: %s", model)
	}
}

type ChatCmd struct{}

func (c *ChatCmd) Run(a *app) error {
	ctx := context.Background()

	p, model, err := a.buildPipeline(ctx, nil)
	if err != nil {
		return err
	}
	defer p.Close()

	router := a.buildRouter(p, model)

	color.Cyan("\nChat with the Neura Dynamics policy assistant (type 'exit' to quit)")

	scanner := bufio.NewScanner(os.Stdin)
	userPrompt := color.New(color.FgGreen).PrintfFunc()
	assistantPrompt := color.New(color.FgCyan).PrintfFunc()

	for {
		userPrompt("\nYou: ")
		if !scanner.Scan() {
			break
		}

		message := strings.TrimSpace(scanner.Text())
		if message == "" {
			continue
		}
		if q := strings.ToLower(message); q == "exit" || q == "quit" {
			break
		}

		answer, err := router.Respond(ctx, message)
		if err != nil {
			color.Red("Error: %v", err)
			continue
		}

		assistantPrompt("\nAssistant: ")
		fmt.Println(answer.Text)
		if len(answer.Sources) > 0 {
			color.Yellow("Sources: %s", strings.Join(answer.Sources, ", "))
		}
	}

	return scanner.Err()
}

type EvalCmd struct {
	Out   string `help:"Report output path. Defaults to evaluation_results/eval_<version>.json."`
	Judge bool   `help:"Grade answers with the configured model instead of the rule matrix."`
}

func (c *EvalCmd) Run(a *app) error {
	ctx := context.Background()

	p, model, err := a.buildPipeline(ctx, nil)
	if err != nil {
		return err
	}
	defer p.Close()

	router := a.buildRouter(p, model)

	var judge eval.Judge
	if c.Judge {
		judge = eval.NewLLMJudge(model)
	}

	questions := eval.DefaultQuestions()
	color.Cyan("Running %d evaluation questions (prompt %s, rerank %v)",
		len(questions), a.cfg.Prompt.Version, a.cfg.RerankEnabled())

	runner := eval.NewRunner(router, judge, a.logger)
	report, err := runner.Run(ctx, questions, a.cfg.Prompt.Version, a.cfg.RerankEnabled())
	if err != nil {
		return err
	}

	for _, r := range report.Results {
		fmt.Printf("\nQ%d: %s\n", r.QuestionID, r.Question)
		fmt.Printf("  Category: %s\n", r.Category)
		switch r.Score.Overall {
		case eval.Pass:
			color.Green("  Result: PASS")
		case eval.Partial:
			color.Yellow("  Result: PARTIAL")
		default:
			color.Red("  Result: FAIL")
		}
		if r.Error != "" {
			color.Red("  Error: %s", r.Error)
		}
	}

	fmt.Println()
	color.Cyan("Summary: %d passed, %d partial, %d failed (total %d)",
		report.Passed, report.Partial, report.Failed, len(report.Results))

	out := c.Out
	if out == "" {
		out = filepath.Join("evaluation_results", fmt.Sprintf("eval_%s.json", a.cfg.Prompt.Version))
	}
	if err := report.Save(out); err != nil {
		return err
	}
	color.Green("✓ Report saved to %s", out)
	return nil
}

type TemplatesCmd struct{}

func (c *TemplatesCmd) Run(a *app) error {
	registry := prompt.NewRegistry()
	fmt.Println("Available prompt template versions:")
	for _, tag := range registry.Versions() {
		marker := " "
		if tag == a.cfg.Prompt.Version {
			marker = "*"
		}
		fmt.Printf("  %s %s\n", marker, tag)
	}
	return nil
}
