package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tsawler/sentimen"
)

var predictCmd = &cobra.Command{
	Use:   "predict [TEXT...]",
	Short: "Classify texts with a saved model",
	Long: `Classify the given texts with a saved model. Without arguments, lines are
read from stdin and SIGHUP reloads the model from --model-dir.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger()
		dir := viper.GetString("model_dir")
		model, err := sentimen.ModelFromDisk(dir)
		if err != nil {
			return err
		}
		n, err := newNormalizer(log)
		if err != nil {
			return err
		}
		if len(args) > 0 {
			labels, err := model.Classify(n, args...)
			if err != nil {
				return err
			}
			for i, l := range labels {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", l, args[i])
			}
			return nil
		}

		holder := sentimen.NewModelHolder(model)
		hup := make(chan os.Signal, 1)
		signal.Notify(hup, syscall.SIGHUP)
		defer signal.Stop(hup)
		go func() {
			for {
				select {
				case <-cmd.Context().Done():
					return
				case <-hup:
					if err := holder.Reload(dir); err != nil {
						log.WithError(err).Error("model reload failed, keeping current model")
						continue
					}
					log.WithField("dir", dir).Info("model reloaded")
				}
			}
		}()
		return predictLines(cmd.InOrStdin(), cmd.OutOrStdout(), holder, n)
	},
}

func predictLines(in io.Reader, out io.Writer, holder *sentimen.ModelHolder, n *sentimen.Normalizer) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		labels, err := holder.Model().Classify(n, line)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s\t%s\n", labels[0], line)
	}
	return scanner.Err()
}

var crossvalCmd = &cobra.Command{
	Use:   "crossval",
	Short: "Estimate accuracy with stratified k-fold cross-validation",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger()
		n, err := newNormalizer(log)
		if err != nil {
			return err
		}
		var samples []sentimen.Sample
		if viper.GetBool("from_db") {
			db, err := openStore()
			if err != nil {
				return err
			}
			if db == nil {
				return errNeedStore
			}
			defer db.Close()
			if samples, err = db.Preprocessed(cmd.Context()); err != nil {
				return err
			}
		} else {
			records, err := readData()
			if err != nil {
				return err
			}
			normalized, _, err := n.NormalizeAll(cmd.Context(), records)
			if err != nil {
				return err
			}
			samples = sentimen.SamplesFromRecords(normalized)
		}
		trainer := sentimen.NewTrainer(trainingConfig(log), n)
		res, err := trainer.CrossValidate(cmd.Context(), samples, viper.GetInt("folds"))
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for i, acc := range res.FoldAccuracy {
			fmt.Fprintf(out, "fold %d: %.4f\n", i+1, acc)
		}
		fmt.Fprintf(out, "mean:   %.4f ± %.4f\n", res.MeanAccuracy, res.StdAccuracy)
		return nil
	},
}

var labelCmd = &cobra.Command{
	Use:   "label TEXT...",
	Short: "Label texts with the weighted sentiment lexicon",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger()
		lex, err := sentimen.LoadLexicon(resourceFS(), sentimen.DefaultLexiconFormat, log,
			sentimen.PositiveFile, sentimen.NegativeFile)
		if err != nil {
			return err
		}
		labeler := sentimen.NewLabeler(lex)
		out := cmd.OutOrStdout()
		for _, text := range args {
			res := labeler.Label(text)
			fmt.Fprintf(out, "%s\t%+.2f\t%s\n", res.Label, res.Score, text)
			if !viper.GetBool("sentences") {
				continue
			}
			parts, err := labeler.LabelSentences(text)
			if err != nil {
				return err
			}
			for _, p := range parts {
				fmt.Fprintf(out, "  %s\t%+.2f\t%s\n", p.Label, p.Score, p.Sentence)
			}
		}
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Label lines from stdin, reloading the lexicon when its files change",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger()
		dir := viper.GetString("kamus")
		if dir == "" {
			return fmt.Errorf("%w: watch needs --kamus pointing at a dictionary directory", sentimen.ErrValidation)
		}
		w, err := sentimen.NewLexiconWatcher(sentimen.DefaultLexiconFormat, log,
			filepath.Join(dir, sentimen.PositiveFile), filepath.Join(dir, sentimen.NegativeFile))
		if err != nil {
			return err
		}
		go func() {
			if err := w.Watch(cmd.Context()); err != nil {
				log.WithError(err).Error("lexicon watcher stopped")
			}
		}()
		return labelLines(cmd.InOrStdin(), cmd.OutOrStdout(), w)
	},
}

func labelLines(in io.Reader, out io.Writer, w *sentimen.LexiconWatcher) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		res := w.Labeler().Label(line)
		fmt.Fprintf(out, "%s\t%+.2f\t%s\n", res.Label, res.Score, line)
	}
	return scanner.Err()
}

func init() {
	predictCmd.Flags().String("model-dir", "model", "directory holding a trained model")
	predictCmd.PreRun = bindFlags("model-dir=model_dir")

	crossvalCmd.Flags().String("data", "", "CSV or Excel file with full_text and sentiment_pakar columns")
	crossvalCmd.Flags().Bool("from-db", false, "cross-validate the preprocessing stored in --db")
	crossvalCmd.MarkFlagsOneRequired("data", "from-db")
	crossvalCmd.MarkFlagsMutuallyExclusive("data", "from-db")
	crossvalCmd.Flags().Int("folds", 5, "number of folds")
	crossvalCmd.Flags().Bool("smote", true, "rebalance each training fold with SMOTE")
	crossvalCmd.PreRun = bindFlags("data", "from-db=from_db", "folds", "smote=train.smote")

	labelCmd.Flags().Bool("sentences", false, "also label each sentence")
	labelCmd.PreRun = bindFlags("sentences")

	rootCmd.AddCommand(predictCmd, crossvalCmd, labelCmd, watchCmd)
}
