package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/calvinmclean/tensile/analysis"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const defaultLookupPath = "compliance_lookup.csv"

var (
	analyzeWidth     float64
	analyzeThickness float64
	analyzeGrip      float64
	analyzeLookup    string
	analyzeSave      bool
	analyzeOutputDir string
)

func init() {
	RootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().Float64VarP(&analyzeWidth, "width", "w", 0, "specimen width [mm]")
	analyzeCmd.Flags().Float64VarP(&analyzeThickness, "thickness", "t", 0, "specimen thickness [mm]")
	analyzeCmd.Flags().Float64VarP(&analyzeGrip, "grip", "g", 0, "grip separation [mm]")
	analyzeCmd.Flags().StringVarP(&analyzeLookup, "lookup", "l", defaultLookupPath, "compliance lookup table (force;displacement)")
	analyzeCmd.Flags().BoolVarP(&analyzeSave, "save", "s", false, "write <run>_analyzed.csv and <run>_results.txt")
	analyzeCmd.Flags().StringVarP(&analyzeOutputDir, "output-dir", "o", "", "directory for saved results. Defaults to the directory of each run")
	_ = analyzeCmd.MarkFlagRequired("width")
	_ = analyzeCmd.MarkFlagRequired("thickness")
	_ = analyzeCmd.MarkFlagRequired("grip")
}

func loadLookup(path string, explicit bool) (analysis.Lookup, error) {
	lookup, err := analysis.LoadLookupFile(path)
	if errors.Is(err, os.ErrNotExist) && !explicit {
		log.Warnf("%s not found, displacement is not corrected for machine compliance", path)
		return analysis.Lookup{}, nil
	}
	return lookup, err
}

func analyzeRun(files []string, lookup analysis.Lookup, specimen analysis.Specimen) error {
	var results []analysis.Result
	for _, path := range files {
		samples, err := analysis.LoadCSVFile(path)
		if err != nil {
			return err
		}

		r, err := analysis.Analyze(filepath.Base(path), samples, lookup, specimen)
		if err != nil {
			return fmt.Errorf("analyzing %s: %w", path, err)
		}
		results = append(results, r)

		err = analysis.PrintResults(os.Stdout, r)
		if err != nil {
			return err
		}

		if analyzeSave {
			dir := analyzeOutputDir
			if dir == "" {
				dir = filepath.Dir(path)
			}
			csvPath, txtPath, err := analysis.Save(dir, r, time.Now())
			if err != nil {
				return err
			}
			fmt.Printf("Saved: %s\nSaved: %s\n", csvPath, txtPath)
		}
	}

	if len(results) < 2 {
		return nil
	}

	stats, err := analysis.ComputeStats(results)
	if err != nil {
		return err
	}
	return analysis.PrintStats(os.Stdout, results, stats)
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze run.csv [run.csv...]",
	Short: "Evaluate saved runs: tensile strength, E-modulus, elongation at break",
	Long:  "Evaluate saved runs. All files are assumed to be the same specimen geometry. With more than one file the mean and standard deviation are printed as well.",
	Args:  cobra.MinimumNArgs(1),
	Run: func(c *cobra.Command, args []string) {
		ConfigureVerbosity()

		lookup, err := loadLookup(analyzeLookup, c.Flags().Changed("lookup"))
		if err != nil {
			log.Fatal(err)
		}

		specimen := analysis.Specimen{WidthMM: analyzeWidth, ThicknessMM: analyzeThickness, GripMM: analyzeGrip}
		if err := analyzeRun(args, lookup, specimen); err != nil {
			log.Fatal(err)
		}
	},
}
