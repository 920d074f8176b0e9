package main

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"pkt.systems/pslog"
	"pkt.systems/screenplay"
)

func newRunCmd() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run <scenario.toml>",
		Short: "Execute a scenario file",
		Args:  cobra.ExactArgs(1),
		RunE:  runE,
	}

	addLoggingFlags(runCmd.Flags())
	runCmd.Flags().StringArray("var", nil, "Override variable (key=value)")
	runCmd.Flags().StringSlice("tags", nil, "Only run steps with these tags")
	runCmd.Flags().StringSlice("exclude-tags", nil, "Skip steps with these tags")
	runCmd.Flags().Int("delay", 0, "Delay between steps (ms)")
	runCmd.Flags().Bool("bail", false, "Stop after first failure")
	runCmd.Flags().Duration("timeout", 15*time.Second, "Per-step timeout")
	runCmd.Flags().String("contract", "", "OpenAPI document for documented steps (overrides the scenario's contract)")
	runCmd.Flags().StringP("output", "o", "", "Write summary to file (see --format)")
	runCmd.Flags().StringP("format", "f", "json", "Output format: json|junit|html")
	runCmd.Flags().String("reporter-json", "", "Write JSON report to path")
	runCmd.Flags().String("reporter-junit", "", "Write JUnit XML report to path")
	runCmd.Flags().String("reporter-html", "", "Write HTML report to path")
	runCmd.Flags().String("csv-file-path", "", "Path to CSV dataset for data-driven iterations")
	runCmd.Flags().String("json-file-path", "", "Path to JSON dataset for data-driven iterations")
	runCmd.Flags().Int("iteration-count", 0, "Execute the scenario this many times (default 1)")
	runCmd.Flags().Bool("reporter-skip-all-headers", false, "Omit headers from reporter outputs")
	runCmd.Flags().StringSlice("reporter-skip-headers", nil, "Skip specific headers (case-insensitive) from reporter outputs")
	runCmd.Flags().Bool("insecure", false, "Skip TLS verification")
	runCmd.Flags().String("cacert", "", "Path to custom CA certificate (PEM)")
	runCmd.Flags().Bool("ignore-truststore", false, "Use only the provided CA certificate")
	runCmd.Flags().String("client-cert-config", "", "Path to client certificate config JSON {\"cert\":\"\",\"key\":\"\"}")
	runCmd.Flags().Bool("noproxy", false, "Disable proxy (ignore environment)")
	runCmd.Flags().Bool("disable-cookies", false, "Do not store/send cookies between requests")
	runCmd.Flags().String("pre-hook", "", "Executable (with args) to run before each step")
	runCmd.Flags().String("post-hook", "", "Executable (with args) to run after each step")

	return runCmd
}

func newLogger(structured bool, level string, flagSet bool, caller bool, w io.Writer) (pslog.Logger, error) {
	if w == nil {
		w = os.Stdout
	}

	opts := pslog.Options{CallerKeyval: caller}
	if structured {
		opts.Mode = pslog.ModeStructured
	}
	logger := pslog.NewWithOptions(w, opts).LogLevel(pslog.InfoLevel)

	if flagSet {
		if lvl, ok := pslog.ParseLevel(level); ok {
			return logger.LogLevel(lvl), nil
		}
		return nil, fmt.Errorf("unknown level %q", level)
	}

	if lvl, ok := pslog.LevelFromEnv("LOG_LEVEL"); ok {
		return logger.LogLevel(lvl), nil
	}
	if lvl, ok := pslog.ParseLevel(level); ok {
		return logger.LogLevel(lvl), nil
	}
	return logger, nil
}

func runE(cmd *cobra.Command, args []string) error {
	target := args[0]
	varsList, _ := cmd.Flags().GetStringArray("var")
	tags, _ := cmd.Flags().GetStringSlice("tags")
	exclude, _ := cmd.Flags().GetStringSlice("exclude-tags")
	delayMS, _ := cmd.Flags().GetInt("delay")
	bail, _ := cmd.Flags().GetBool("bail")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	contractPath, _ := cmd.Flags().GetString("contract")
	csvPath, _ := cmd.Flags().GetString("csv-file-path")
	jsonPath, _ := cmd.Flags().GetString("json-file-path")
	iterCount, _ := cmd.Flags().GetInt("iteration-count")
	output, _ := cmd.Flags().GetString("output")
	format, _ := cmd.Flags().GetString("format")
	reportJSON, _ := cmd.Flags().GetString("reporter-json")
	reportJUnit, _ := cmd.Flags().GetString("reporter-junit")
	reportHTML, _ := cmd.Flags().GetString("reporter-html")
	reportSkipAll, _ := cmd.Flags().GetBool("reporter-skip-all-headers")
	reportSkip, _ := cmd.Flags().GetStringSlice("reporter-skip-headers")
	insecure, _ := cmd.Flags().GetBool("insecure")
	cacert, _ := cmd.Flags().GetString("cacert")
	ignoreTS, _ := cmd.Flags().GetBool("ignore-truststore")
	clientCertPath, _ := cmd.Flags().GetString("client-cert-config")
	noProxy, _ := cmd.Flags().GetBool("noproxy")
	disableCookies, _ := cmd.Flags().GetBool("disable-cookies")
	preHookCmd, _ := cmd.Flags().GetString("pre-hook")
	postHookCmd, _ := cmd.Flags().GetString("post-hook")

	logger := loggerFromCmd(cmd)

	if csvPath != "" && jsonPath != "" {
		logger.Fatal("choose either --csv-file-path or --json-file-path")
		return nil
	}
	if iterCount < 0 {
		logger.Fatal("iteration-count must be >= 0", "value", iterCount)
		return nil
	}

	vars, err := parseVars(varsList)
	if err != nil {
		logger.Fatal("invalid --var", "err", err)
		return nil
	}

	httpClient, err := buildHTTPClient(insecure, cacert, ignoreTS, clientCertPath, noProxy, disableCookies)
	if err != nil {
		logger.Fatal("http client", "err", err)
		return nil
	}

	r, err := screenplay.New(cmd.Context(), screenplay.WithLogger(logger), screenplay.WithHTTPClient(httpClient), screenplay.WithTimeout(timeout))
	if err != nil {
		logger.Fatal("init", "err", err)
		return nil
	}

	opts := screenplay.RunOptions{
		Vars:                   vars,
		ContractPath:           contractPath,
		Tags:                   tags,
		ExcludeTags:            exclude,
		Bail:                   bail,
		CSVFilePath:            csvPath,
		JSONFilePath:           jsonPath,
		IterationCount:         iterCount,
		Delay:                  time.Duration(delayMS) * time.Millisecond,
		Timeout:                timeout,
		OutputPath:             output,
		OutputFormat:           format,
		ReporterJSON:           reportJSON,
		ReporterJUnit:          reportJUnit,
		ReporterHTML:           reportHTML,
		ReporterSkipAllHeaders: reportSkipAll,
		ReporterSkipHeaders:    reportSkip,
		PreHookCmd:             splitCmd(preHookCmd),
		PostHookCmd:            splitCmd(postHookCmd),
	}

	summary, err := r.RunFile(cmd.Context(), target, opts)
	if err != nil {
		logger.Fatal("run", "err", err)
		return nil
	}
	if err := writeOutputs(opts, summary); err != nil {
		logger.Fatal("report", "err", err)
		return nil
	}
	printSummary(summary, logger)
	if summary.Failed > 0 {
		logger.Fatal("steps failed", "count", summary.Failed)
	}
	return nil
}

func parseVars(list []string) (map[string]string, error) {
	vars := map[string]string{}
	for _, kv := range list {
		key, val, ok := strings.Cut(kv, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("expected key=value, got %q", kv)
		}
		vars[strings.TrimSpace(key)] = val
	}
	return vars, nil
}

func buildHTTPClient(insecure bool, cacert string, ignoreTS bool, clientCertPath string, noProxy bool, disableCookies bool) (*http.Client, error) {
	tlsConfig := &tls.Config{InsecureSkipVerify: insecure} //nolint:gosec // user opted in

	if cacert != "" {
		pemData, err := os.ReadFile(cacert)
		if err != nil {
			return nil, fmt.Errorf("read cacert: %w", err)
		}
		var pool *x509.CertPool
		if ignoreTS {
			pool = x509.NewCertPool()
		} else {
			pool, err = x509.SystemCertPool()
			if err != nil {
				pool = x509.NewCertPool()
			}
		}
		if ok := pool.AppendCertsFromPEM(pemData); !ok {
			return nil, fmt.Errorf("failed to append CA cert")
		}
		tlsConfig.RootCAs = pool
	}

	if clientCertPath != "" {
		cfgBytes, err := os.ReadFile(clientCertPath)
		if err != nil {
			return nil, fmt.Errorf("read client-cert-config: %w", err)
		}
		certPath, keyPath, err := parseClientCertConfig(clientCertPath, cfgBytes)
		if err != nil {
			return nil, err
		}
		cert, err := tls.LoadX509KeyPair(certPath, keyPath)
		if err != nil {
			return nil, fmt.Errorf("load client cert: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	tr := &http.Transport{
		TLSClientConfig: tlsConfig,
	}
	if !noProxy {
		tr.Proxy = http.ProxyFromEnvironment
	}

	client := &http.Client{
		Transport: tr,
		Timeout:   15 * time.Second,
	}
	if !disableCookies {
		if jar, err := cookiejar.New(nil); err == nil {
			client.Jar = jar
		}
	}
	return client, nil
}

// parseClientCertConfig reads {"cert": "...", "key": "..."}; relative paths
// resolve against the config file's directory.
func parseClientCertConfig(configPath string, raw []byte) (certPath, keyPath string, err error) {
	var cfg struct {
		Cert string `json:"cert"`
		Key  string `json:"key"`
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return "", "", fmt.Errorf("client-cert-config: %w", err)
	}
	if cfg.Cert == "" || cfg.Key == "" {
		return "", "", fmt.Errorf("client-cert-config requires cert/key")
	}
	return resolveRelative(configPath, cfg.Cert), resolveRelative(configPath, cfg.Key), nil
}

func resolveRelative(cfgPath, target string) string {
	if filepath.IsAbs(target) {
		return target
	}
	return filepath.Join(filepath.Dir(cfgPath), target)
}

func splitCmd(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return strings.Fields(s)
}

func printSummary(sum screenplay.Summary, logger pslog.Base) {
	for _, s := range sum.Steps {
		printStep(s, logger)
	}
	logger.Info("summary", "scenario", sum.Scenario, "total", sum.Total, "passed", sum.Passed, "failed", sum.Failed, "skipped", sum.Skipped, "elapsed", sum.TotalElapsed.String())
}

func printStep(res screenplay.StepResult, logger pslog.Base) {
	if res.Skipped {
		logger.Info("skip", "step", res.Name, "actor", res.Actor)
		return
	}
	if res.Passed {
		logger.Info("pass", "step", res.Name, "actor", res.Actor, "status", res.Status, "dur", res.Duration.String())
		return
	}
	logger.Error("fail", "step", res.Name, "actor", res.Actor, "status", res.Status, "dur", res.Duration.String(), "err", res.ErrorText)
	for _, f := range res.Failures {
		logger.Error("assert", "name", f.Name, "msg", f.Message)
	}
}

func writeOutputs(opts screenplay.RunOptions, sum screenplay.Summary) error {
	sum = screenplay.FilterReportHeaders(sum, opts)
	if opts.OutputPath != "" {
		if err := screenplay.WriteReport(opts.OutputFormat, opts.OutputPath, sum); err != nil {
			return err
		}
	}
	if opts.ReporterJSON != "" {
		if err := screenplay.WriteReportJSON(opts.ReporterJSON, sum); err != nil {
			return err
		}
	}
	if opts.ReporterJUnit != "" {
		if err := screenplay.WriteReportJUnit(opts.ReporterJUnit, sum); err != nil {
			return err
		}
	}
	if opts.ReporterHTML != "" {
		if err := screenplay.WriteReportHTML(opts.ReporterHTML, sum); err != nil {
			return err
		}
	}
	return nil
}
