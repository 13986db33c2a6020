// matchctl is a command line client for a matchdex server.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	matchdex "github.com/matchdex/matchdex/pkg/sdk"
)

const app = "matchctl"

var rootCmd = &cobra.Command{
	Use:   app,
	Short: "matchctl is a cli for submitting, matching and exploring resumes and job postings on a matchdex server",
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	if err := viper.BindEnv("server", "MATCHCTL_SERVER"); err != nil {
		log.Fatalf("binding MATCHCTL_SERVER environment variable: %v", err)
	}
	if err := viper.BindEnv("token", "MATCHCTL_TOKEN"); err != nil {
		log.Fatalf("binding MATCHCTL_TOKEN environment variable: %v", err)
	}

	rootCmd.PersistentFlags().String("server", "http://localhost:8080", "matchdex server base URL")
	rootCmd.PersistentFlags().String("token", "", "bearer token for the server API")
	rootCmd.PersistentFlags().Duration("timeout", 30*time.Second, "request timeout")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "print raw JSON instead of formatted output")

	mustBindPFlag("server")
	mustBindPFlag("token")
	mustBindPFlag("timeout")
	mustBindPFlag("json")
}

func mustBindPFlag(name string) {
	if err := viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name)); err != nil {
		log.Fatalf("binding %s flag: %v", name, err)
	}
}

func newClient() (*matchdex.Client, error) {
	return matchdex.New(
		matchdex.WithBaseURL(viper.GetString("server")),
		matchdex.WithToken(viper.GetString("token")),
		matchdex.WithTimeout(viper.GetDuration("timeout")),
	)
}

// recordService resolves the population argument to its SDK service.
func recordService(c *matchdex.Client, population string) (*matchdex.RecordService, error) {
	switch population {
	case "resumes":
		return c.Resumes(), nil
	case "jobs":
		return c.Jobs(), nil
	default:
		return nil, fmt.Errorf("unknown population %q (want resumes or jobs)", population)
	}
}

func jsonOutput() bool {
	return viper.GetBool("json")
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
