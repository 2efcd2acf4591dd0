package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tsawler/sentimen"
	"github.com/tsawler/sentimen/internal/store"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "sentimen",
	Short: "Sentiment classification for Indonesian social-media text",
	Long: `sentimen preprocesses expert-labeled tweets, splits them into training and
testing sets, trains a multinomial Naive Bayes classifier on TF-IDF features
and reports its accuracy. It also labels text with a weighted lexicon.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.sentimen.yaml)")
	rootCmd.PersistentFlags().String("db", "", "SQLite database that stores each stage's output (disabled when empty)")
	rootCmd.PersistentFlags().String("kamus", "", "directory holding normalisasi.txt, stopwords.txt and the lexicons (default: bundled)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("stemmer", "sastrawi", "stemmer: sastrawi, none, or a snowball language")
	rootCmd.PersistentFlags().Int("workers", 0, "normalization workers (default: number of CPUs)")
	rootCmd.PersistentFlags().StringSlice("stopword-lang", nil, "extra stopword lists by ISO 639-1 code, e.g. en for mixed-language tweets")

	viper.BindPFlag("db", rootCmd.PersistentFlags().Lookup("db"))
	viper.BindPFlag("kamus", rootCmd.PersistentFlags().Lookup("kamus"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("stemmer", rootCmd.PersistentFlags().Lookup("stemmer"))
	viper.BindPFlag("workers", rootCmd.PersistentFlags().Lookup("workers"))
	viper.BindPFlag("stopwords.languages", rootCmd.PersistentFlags().Lookup("stopword-lang"))

	viper.SetDefault("log_level", "info")
	viper.SetDefault("stemmer", "sastrawi")
	viper.SetDefault("train.ratio", 0.8)
	viper.SetDefault("train.alpha", sentimen.DefaultAlpha)
	viper.SetDefault("train.smote", true)
	viper.SetDefault("train.seed", sentimen.DefaultSeed)
	viper.SetDefault("tfidf.max_terms", 5000)
	viper.SetDefault("tfidf.ngram_min", 1)
	viper.SetDefault("tfidf.ngram_max", 2)
	viper.SetDefault("tfidf.norm", sentimen.NormL2)
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".sentimen")
	}

	viper.SetEnvPrefix("SENTIMEN")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		newLogger().WithField("file", viper.ConfigFileUsed()).Debug("using config file")
	}
}

func newLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	level, err := logrus.ParseLevel(viper.GetString("log_level"))
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	return log
}

// resourceFS returns the dictionary directory, or the bundled dictionaries.
func resourceFS() fs.FS {
	if dir := viper.GetString("kamus"); dir != "" {
		return os.DirFS(dir)
	}
	return sentimen.BundledResources()
}

func newNormalizer(log logrus.FieldLogger) (*sentimen.Normalizer, error) {
	stemmer, err := sentimen.StemmerByName(viper.GetString("stemmer"))
	if err != nil {
		return nil, err
	}
	res := sentimen.LoadResources(resourceFS(), log)
	for _, w := range res.Warnings {
		log.WithField("resource", w).Warn("dictionary unavailable")
	}
	return sentimen.NewNormalizerFromResources(res,
		sentimen.UsingStopwords(sentimen.StopwordsFor(res.Stopwords, viper.GetStringSlice("stopwords.languages")...)),
		sentimen.UsingStemmer(stemmer),
		sentimen.WithLogger(log),
		sentimen.WithWorkers(viper.GetInt("workers")),
	), nil
}

func trainingConfig(log logrus.FieldLogger) sentimen.TrainingConfig {
	cfg := sentimen.DefaultTrainingConfig()
	cfg.TrainRatio = viper.GetFloat64("train.ratio")
	cfg.Alpha = viper.GetFloat64("train.alpha")
	cfg.UseSMOTE = viper.GetBool("train.smote")
	cfg.Seed = viper.GetInt64("train.seed")
	cfg.Vectorizer = sentimen.VectorizerConfig{
		MaxTerms:   viper.GetInt("tfidf.max_terms"),
		NgramRange: [2]int{viper.GetInt("tfidf.ngram_min"), viper.GetInt("tfidf.ngram_max")},
		Norm:       viper.GetString("tfidf.norm"),
	}
	cfg.Log = log
	return cfg
}

// openStore opens the configured database, or returns nil when none is set.
func openStore() (*store.Store, error) {
	path := viper.GetString("db")
	if path == "" {
		return nil, nil
	}
	s, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	return s, nil
}
