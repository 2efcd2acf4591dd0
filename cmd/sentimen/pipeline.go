package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tsawler/sentimen"
	"gopkg.in/yaml.v3"
)

var preprocessCmd = &cobra.Command{
	Use:   "preprocess",
	Short: "Normalize a labeled dataset",
	Long: `Read a CSV or Excel file with full_text and sentiment_pakar columns and run every normalization stage over it.
With --from-db the dataset stored by an earlier run is normalized instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger()
		db, err := openStore()
		if err != nil {
			return err
		}
		if db != nil {
			defer db.Close()
		}

		var records []sentimen.Record
		if viper.GetBool("from_db") {
			if db == nil {
				return errNeedStore
			}
			records, err = db.Dataset(cmd.Context())
		} else {
			records, err = readData()
		}
		if err != nil {
			return err
		}
		n, err := newNormalizer(log)
		if err != nil {
			return err
		}
		normalized, report, err := n.NormalizeAll(cmd.Context(), records)
		if err != nil {
			return err
		}

		if db != nil {
			if err := db.SaveDataset(cmd.Context(), records); err != nil {
				return err
			}
			if err := db.SavePreprocessing(cmd.Context(), normalized); err != nil {
				return err
			}
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "records:              %d\n", report.Original)
		fmt.Fprintf(out, "blank dropped:        %d\n", report.Blank)
		fmt.Fprintf(out, "raw duplicates:       %d\n", report.RawDuplicatesRemoved)
		fmt.Fprintf(out, "stemmed collisions:   %d groups (kept)\n", len(report.StemDuplicates))
		fmt.Fprintf(out, "final:                %d\n", report.Final)
		return nil
	},
}

var splitCmd = &cobra.Command{
	Use:   "split",
	Short: "Normalize and split a dataset into training and testing sets",
	Long: `Normalize a dataset file and split it into training and testing sets.
With --from-db the preprocessing stored by "preprocess --db" is split instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger()
		db, err := openStore()
		if err != nil {
			return err
		}
		if db != nil {
			defer db.Close()
		}

		var samples []sentimen.Sample
		if viper.GetBool("from_db") {
			if db == nil {
				return errNeedStore
			}
			if samples, err = db.Preprocessed(cmd.Context()); err != nil {
				return err
			}
		} else {
			records, err := readData()
			if err != nil {
				return err
			}
			n, err := newNormalizer(log)
			if err != nil {
				return err
			}
			normalized, _, err := n.NormalizeAll(cmd.Context(), records)
			if err != nil {
				return err
			}
			samples = sentimen.SamplesFromRecords(normalized)
		}
		splitter := &sentimen.Splitter{Seed: viper.GetInt64("train.seed")}
		split, err := splitter.Split(samples, viper.GetFloat64("train.ratio"))
		if err != nil {
			return err
		}

		if db != nil {
			if err := db.SaveSplit(cmd.Context(), split); err != nil {
				return err
			}
		}

		train, test := split.Distributions()
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "training: %d %s\n", len(split.Train), train)
		fmt.Fprintf(out, "testing:  %d %s\n", len(split.Test), test)
		return nil
	},
}

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Run the full pipeline and evaluate a Naive Bayes model",
	Long: `Run every stage over a dataset file and evaluate the resulting model.
With --from-db training starts from the split stored by "split --db".`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger()
		db, err := openStore()
		if err != nil {
			return err
		}
		if db != nil {
			defer db.Close()
		}

		n, err := newNormalizer(log)
		if err != nil {
			return err
		}
		trainer := sentimen.NewTrainer(trainingConfig(log), n)
		var (
			records []sentimen.Record
			res     *sentimen.RunResult
		)
		if viper.GetBool("from_db") {
			if db == nil {
				return errNeedStore
			}
			train, test, err := db.Split(cmd.Context())
			if err != nil {
				return err
			}
			res, err = trainer.RunSplit(cmd.Context(), &sentimen.SplitResult{Train: train, Test: test})
			if err != nil {
				return err
			}
		} else {
			if records, err = readData(); err != nil {
				return err
			}
			if res, err = trainer.Run(cmd.Context(), records); err != nil {
				return err
			}
		}

		if dir := viper.GetString("model_dir"); dir != "" {
			if err := res.Model.Write(dir); err != nil {
				return fmt.Errorf("writing model: %w", err)
			}
			log.WithField("dir", dir).Info("model written")
		}

		if db != nil {
			if records != nil {
				if err := db.SaveDataset(cmd.Context(), records); err != nil {
					return err
				}
				if err := db.SavePreprocessing(cmd.Context(), res.Records); err != nil {
					return err
				}
				if err := db.SaveSplit(cmd.Context(), res.Split); err != nil {
					return err
				}
			}
			if _, err := db.SaveResults(cmd.Context(), res.Report.RunID, res.Report.Predictions); err != nil {
				return err
			}
			log.WithField("run", res.Report.RunID).Info("results stored")
		}

		if path := viper.GetString("report"); path != "" {
			f, err := os.Create(path)
			if err != nil {
				return err
			}
			defer f.Close()
			if err := writeReport(f, res.Report, viper.GetString("format")); err != nil {
				return err
			}
		}
		printSummary(cmd.OutOrStdout(), res)
		return nil
	},
}

var resultsCmd = &cobra.Command{
	Use:   "results RUN_ID",
	Short: "Show the stored predictions of a training run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore()
		if err != nil {
			return err
		}
		if db == nil {
			return errNeedStore
		}
		defer db.Close()

		preds, err := db.Results(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if len(preds) == 0 {
			return fmt.Errorf("%w: no results stored for run %s", sentimen.ErrValidation, args[0])
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "actual\tpredicted\ttext")
		correct := 0
		for _, p := range preds {
			if p.Actual == p.Predicted {
				correct++
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n", p.Actual, p.Predicted, p.Text)
		}
		tw.Flush()
		fmt.Fprintf(cmd.OutOrStdout(), "\n%d/%d correct\n", correct, len(preds))
		return nil
	},
}

var errNeedStore = fmt.Errorf("%w: this command needs --db", sentimen.ErrValidation)

// readData reads the dataset named by the data flag.
func readData() ([]sentimen.Record, error) {
	path := viper.GetString("data")
	if path == "" {
		return nil, fmt.Errorf("%w: --data is required without --from-db", sentimen.ErrValidation)
	}
	return sentimen.ReadRecords(path)
}

// writeReport encodes report as json or yaml.
func writeReport(w io.Writer, report *sentimen.EvaluationReport, format string) error {
	switch format {
	case "", "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(report)
	}
	return fmt.Errorf("%w: unknown report format %q", sentimen.ErrValidation, format)
}

func printSummary(w io.Writer, res *sentimen.RunResult) {
	r := res.Report
	fmt.Fprintf(w, "run:      %s\n", r.RunID)
	fmt.Fprintf(w, "accuracy: %.4f\n", r.Accuracy)
	fmt.Fprintf(w, "training: %d -> %d rows %s\n", res.Features.TrainCountBefore, len(res.Features.TrainY), res.Features.DistributionAfter)
	fmt.Fprintf(w, "testing:  %d rows\n\n", len(res.Features.TestY))

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "class\tprecision\trecall\tf1\tsupport")
	for _, c := range r.Classes {
		fmt.Fprintf(tw, "%s\t%.4f\t%.4f\t%.4f\t%d\n", c.Label, c.Precision, c.Recall, c.F1, c.Support)
	}
	fmt.Fprintf(tw, "macro avg\t%.4f\t%.4f\t%.4f\t%d\n", r.MacroAvg.Precision, r.MacroAvg.Recall, r.MacroAvg.F1, r.MacroAvg.Support)
	fmt.Fprintf(tw, "weighted avg\t%.4f\t%.4f\t%.4f\t%d\n", r.WeightedAvg.Precision, r.WeightedAvg.Recall, r.WeightedAvg.F1, r.WeightedAvg.Support)
	tw.Flush()

	fmt.Fprintln(w, "\nconfusion matrix (rows actual, columns predicted):")
	tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, l := range r.Labels {
		fmt.Fprintf(tw, "\t%s", l)
	}
	fmt.Fprintln(tw)
	for i, l := range r.Labels {
		fmt.Fprint(tw, l)
		for _, v := range r.ConfusionMatrix[i] {
			fmt.Fprintf(tw, "\t%d", v)
		}
		fmt.Fprintln(tw)
	}
	tw.Flush()

	fmt.Fprintln(w)
	for _, e := range r.Trace {
		fmt.Fprintln(w, e.Text)
	}
}

func init() {
	for _, c := range []*cobra.Command{preprocessCmd, splitCmd, trainCmd} {
		c.Flags().String("data", "", "CSV or Excel file with full_text and sentiment_pakar columns")
		c.Flags().Bool("from-db", false, "read the previous stage's output from --db instead of --data")
		c.MarkFlagsOneRequired("data", "from-db")
		c.MarkFlagsMutuallyExclusive("data", "from-db")
		rootCmd.AddCommand(c)
	}
	rootCmd.AddCommand(resultsCmd)
	preprocessCmd.PreRun = bindFlags("data", "from-db=from_db")

	splitCmd.Flags().Float64("ratio", 0.8, "fraction of each class assigned to training")
	splitCmd.PreRun = bindFlags("data", "from-db=from_db", "ratio=train.ratio")

	trainCmd.Flags().Float64("ratio", 0.8, "fraction of each class assigned to training")
	trainCmd.Flags().Bool("smote", true, "rebalance the training set with SMOTE")
	trainCmd.Flags().Float64("alpha", sentimen.DefaultAlpha, "Laplace smoothing")
	trainCmd.Flags().String("model-dir", "", "directory to write the trained model to")
	trainCmd.Flags().String("report", "", "file to write the evaluation report to")
	trainCmd.Flags().String("format", "json", "report format: json or yaml")
	trainCmd.PreRun = bindFlags("data", "from-db=from_db", "ratio=train.ratio", "smote=train.smote", "alpha=train.alpha",
		"model-dir=model_dir", "report", "format")
}

// bindFlags binds the named local flags to viper keys when the command
// runs, so commands sharing a flag name don't overwrite each other's
// binding. Each binding is "flag" or "flag=key".
func bindFlags(bindings ...string) func(cmd *cobra.Command, args []string) {
	return func(cmd *cobra.Command, args []string) {
		for _, b := range bindings {
			flag, key, found := strings.Cut(b, "=")
			if !found {
				key = flag
			}
			viper.BindPFlag(key, cmd.Flags().Lookup(flag))
		}
	}
}
