package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"sigtrack/internal/xlsxsink"
	"sigtrack/tracker"
)

const version = "sigtrack 1.0.0"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	var configPath string
	var drfPath string
	var xlsPath string
	var allowSignerChanges bool
	var arrivedOnly bool
	var resignWhenFinal bool
	var sdv bool
	var studyDir string
	var dbPath string
	var exclusionPath string
	var priorityFilePath string
	var optionsFile string
	var debug bool
	var showVersion bool

	flag.StringVar(&configPath, "config", "", "Signature configuration file.")
	flag.StringVar(&configPath, "c", "", "Signature configuration file (shorthand).")
	flag.StringVar(&drfPath, "drf", "", "Write re-sign DRF listing to path.")
	flag.StringVar(&drfPath, "d", "", "Write re-sign DRF listing to path (shorthand).")
	flag.StringVar(&xlsPath, "xls", "", "Write report workbook to path.")
	flag.StringVar(&xlsPath, "x", "", "Write report workbook to path (shorthand).")
	flag.BoolVar(&allowSignerChanges, "allow-signer-changes", false, "ACCEPT edits whose who == signer.")
	flag.BoolVar(&allowSignerChanges, "a", false, "ACCEPT edits whose who == signer (shorthand).")
	flag.BoolVar(&arrivedOnly, "arrived-only", false, "Omit obligations without RECSEEN.")
	flag.BoolVar(&arrivedOnly, "A", false, "Omit obligations without RECSEEN (shorthand).")
	flag.BoolVar(&resignWhenFinal, "resign-when-final", false, "Demote DECLINED to DECLINED_ATFINAL on non-final plates.")
	flag.BoolVar(&resignWhenFinal, "F", false, "Demote DECLINED to DECLINED_ATFINAL on non-final plates (shorthand).")
	flag.BoolVar(&sdv, "sdv", false, "Render status strings under the SDV vocabulary.")
	flag.BoolVar(&sdv, "S", false, "Render status strings under the SDV vocabulary (shorthand).")
	flag.StringVar(&studyDir, "studydir", "", "Root directory for centres/countries lookups.")
	flag.StringVar(&studyDir, "s", "", "Root directory for centres/countries lookups (shorthand).")
	flag.StringVar(&dbPath, "db", "", "SQLite output database path.")
	flag.StringVar(&dbPath, "D", "", "SQLite output database path (shorthand).")
	flag.StringVar(&exclusionPath, "exclusion", "", "Exclusion table path.")
	flag.StringVar(&exclusionPath, "E", "", "Exclusion table path (shorthand).")
	flag.StringVar(&priorityFilePath, "priority-file", "", "Emit a priority listing to path and exit.")
	flag.StringVar(&priorityFilePath, "P", "", "Emit a priority listing to path and exit (shorthand).")
	flag.StringVar(&optionsFile, "options-file", "", "YAML file seeding flag defaults; explicit flags still win.")
	flag.BoolVar(&debug, "debug", false, "Enable debug logs.")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit.")
	flag.BoolVar(&showVersion, "v", false, "Print version and exit (shorthand).")
	flag.Parse()

	if showVersion {
		fmt.Println(version)
		return
	}

	visited := map[string]bool{}
	flag.CommandLine.Visit(func(f *flag.Flag) {
		visited[f.Name] = true
	})

	var opts tracker.RunOptions
	if optionsFile != "" {
		loaded, err := tracker.LoadRunOptions(optionsFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "options file: %v\n", err)
			os.Exit(2)
		}
		opts = *loaded
	}

	finalConfig := opts.ConfigPath
	if anyVisited(visited, "config", "c") {
		finalConfig = configPath
	}
	finalDRF := opts.DRFPath
	if anyVisited(visited, "drf", "d") {
		finalDRF = drfPath
	}
	finalXLS := opts.XLSPath
	if anyVisited(visited, "xls", "x") {
		finalXLS = xlsPath
	}
	finalStudyDir := opts.StudyDir
	if anyVisited(visited, "studydir", "s") {
		finalStudyDir = studyDir
	}
	finalDB := opts.DBPath
	if anyVisited(visited, "db", "D") {
		finalDB = dbPath
	}
	finalExclusion := opts.ExclusionPath
	if anyVisited(visited, "exclusion", "E") {
		finalExclusion = exclusionPath
	}
	finalPriorityFile := opts.PriorityFilePath
	if anyVisited(visited, "priority-file", "P") {
		finalPriorityFile = priorityFilePath
	}
	finalAllowSignerChanges := opts.AllowSignerChanges
	if anyVisited(visited, "allow-signer-changes", "a") {
		finalAllowSignerChanges = allowSignerChanges
	}
	finalArrivedOnly := opts.ArrivedOnly
	if anyVisited(visited, "arrived-only", "A") {
		finalArrivedOnly = arrivedOnly
	}
	finalResignWhenFinal := opts.ResignWhenFinal
	if anyVisited(visited, "resign-when-final", "F") {
		finalResignWhenFinal = resignWhenFinal
	}
	finalSDV := opts.SDV
	if anyVisited(visited, "sdv", "S") {
		finalSDV = sdv
	}

	if finalConfig == "" {
		fmt.Fprintln(os.Stderr, "missing signature configuration (use --config or options-file config_path)")
		os.Exit(2)
	}

	runner, configs, exclusions, err := tracker.NewRunner(tracker.RunnerConfig{
		ConfigPath:         finalConfig,
		DRFPath:            finalDRF,
		XLSPath:            finalXLS,
		StudyDir:           finalStudyDir,
		DBPath:             finalDB,
		ExclusionPath:      finalExclusion,
		AllowSignerChanges: finalAllowSignerChanges,
		ArrivedOnly:        finalArrivedOnly,
		ResignWhenFinal:    finalResignWhenFinal,
		SDV:                finalSDV,
		Debug:              debug,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}
	defer runner.Close()

	if len(opts.SiteOverrides.Items) > 0 {
		if err := runner.ApplySiteOverrides(opts.SiteOverrides); err != nil {
			fmt.Fprintf(os.Stderr, "site overrides: %v\n", err)
			os.Exit(2)
		}
	}

	if finalPriorityFile != "" {
		f, err := os.Create(finalPriorityFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "opening priority file %s: %v\n", finalPriorityFile, err)
			os.Exit(2)
		}
		err = tracker.WritePriorityFile(f, configs)
		f.Close()
		if err != nil {
			fmt.Fprintf(os.Stderr, "writing priority file: %v\n", err)
			os.Exit(2)
		}
		return
	}

	nodes, err := runner.Run(os.Stdin, configs, exclusions)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}

	if finalXLS != "" {
		f, err := os.Create(finalXLS)
		if err != nil {
			fmt.Fprintf(os.Stderr, "opening report output %s: %v\n", finalXLS, err)
			os.Exit(2)
		}
		rows := runner.ReportRows(nodes)
		err = xlsxsink.NewCSVWriter(f).Write(rows)
		f.Close()
		if err != nil {
			fmt.Fprintf(os.Stderr, "writing report: %v\n", err)
			os.Exit(2)
		}
	}
}

func anyVisited(visited map[string]bool, names ...string) bool {
	for _, n := range names {
		if visited[n] {
			return true
		}
	}
	return false
}
