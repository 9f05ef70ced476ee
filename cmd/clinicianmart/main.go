// Command clinicianmart builds the clinician mart from a clinician export and
// a provider export:
//
//	clinicianmart -c clinicians.csv -p providers.csv -y mart.yaml
//
// It stages raw copies of both inputs, unifies, filters, normalizes and
// de-duplicates them, and writes the latest and versioned mart files.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"clinicianmart/internal/metrics"
	"clinicianmart/internal/metrics/datadog"
	"clinicianmart/internal/metrics/prompush"

	// register all backends with the storage factory; mart_db.kind picks one.
	_ "clinicianmart/internal/storage/all"
)

type options struct {
	clinician string
	provider  string
	config    string
	validate  bool
	verbose   bool

	metricsBackend string
	pushgatewayURL string
	datadogAddr    string
	job            string
}

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fatalf("%v", err)
	}
}

func newRootCmd() *cobra.Command {
	var o options

	cmd := &cobra.Command{
		Use:           "clinicianmart",
		Short:         "Combine clinician and provider exports into one mart",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rec := newRecorder(o)
			defer func() {
				if err := rec.Flush(); err != nil {
					log.Printf("metrics: flush error: %v", err)
				}
			}()
			return run(cmd.Context(), o, env{stdout: cmd.OutOrStdout(), stderr: cmd.ErrOrStderr(), metrics: rec})
		},
	}

	f := cmd.Flags()
	f.StringVarP(&o.clinician, "clinician", "c", "", "path to the clinicians export (required)")
	f.StringVarP(&o.provider, "provider", "p", "", "path to the providers export (required)")
	f.StringVarP(&o.config, "config", "y", "", "path to the mart YAML config (required)")
	f.BoolVar(&o.validate, "validate", false, "validate the configuration and exit")
	f.BoolVarP(&o.verbose, "verbose", "v", false, "enable verbose logs")
	f.StringVar(&o.metricsBackend, "metrics-backend", "", "metrics backend: pushgateway, datadog or none (env METRICS_BACKEND)")
	f.StringVar(&o.pushgatewayURL, "pushgateway-url", "", "Pushgateway base URL (env PUSHGATEWAY_URL)")
	f.StringVar(&o.datadogAddr, "datadog-addr", "", "DogStatsD address (env DD_AGENT_ADDR)")
	f.StringVar(&o.job, "job", "clinician_mart", "metrics job name")

	for _, name := range []string{"clinician", "provider", "config"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

// newRecorder picks the metrics backend: flag, then env, then none.
func newRecorder(o options) *metrics.Recorder {
	name := firstNonEmpty(o.metricsBackend, os.Getenv("METRICS_BACKEND"), "none")

	var (
		b   metrics.Backend
		err error
	)
	switch name {
	case "pushgateway":
		url := firstNonEmpty(o.pushgatewayURL, os.Getenv("PUSHGATEWAY_URL"), "http://localhost:9091")
		b, err = prompush.NewBackend(o.job, url)
		if err == nil {
			log.Printf("metrics: backend=%s url=%s job=%s", name, url, o.job)
		}
	case "datadog":
		addr := firstNonEmpty(o.datadogAddr, os.Getenv("DD_AGENT_ADDR"), "127.0.0.1:8125")
		b, err = datadog.NewBackend(datadog.Config{Addr: addr, GlobalTags: []string{"job:" + o.job}})
		if err == nil {
			log.Printf("metrics: backend=%s addr=%s job=%s", name, addr, o.job)
		}
	case "none":
		if o.verbose {
			log.Printf("metrics: disabled")
		}
	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", name)
	}
	if err != nil {
		log.Printf("metrics: failed to init %s backend: %v; using nop", name, err)
		b = nil
	}
	return metrics.NewRecorder(o.job, b)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
