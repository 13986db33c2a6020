package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	matchdex "github.com/matchdex/matchdex/pkg/sdk"
)

const (
	promptAsk     = "Ask a question"
	promptRole    = "Set role"
	promptSubject = "Set subject text"
	promptExit    = "Exit"

	roleNone = "none"
)

var errExit = errors.New("exit requested")

var chatMenu = promptui.Select{
	Label: "Chat",
	Items: []string{promptAsk, promptRole, promptSubject, promptExit},
}

var chatCmd = &cobra.Command{
	Use:   "chat [query]",
	Short: "Ask a natural-language question across resumes and jobs",
	Long: `Ask a natural-language question across resumes and jobs.

With a query argument, sends one question and exits. Without arguments,
starts an interactive session where the role and subject text persist
between questions.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}

		rc := requesterContextFromFlags(cmd)

		if len(args) > 0 {
			return askOnce(cmd.Context(), client, strings.Join(args, " "), rc)
		}
		return chatLoop(cmd.Context(), client, rc)
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().String("role", "", "requester role: job_seeker or employer")
	chatCmd.Flags().String("subject", "", "subject text matched against the opposite population")
	chatCmd.Flags().String("owner", "", "owner id, excluded from match results")
	chatCmd.Flags().Int("top-k", 0, "results per source")
}

func requesterContextFromFlags(cmd *cobra.Command) *matchdex.RequesterContext {
	role, _ := cmd.Flags().GetString("role")
	subject, _ := cmd.Flags().GetString("subject")
	owner, _ := cmd.Flags().GetString("owner")
	topK, _ := cmd.Flags().GetInt("top-k")

	if role == "" && subject == "" && owner == "" && topK == 0 {
		return nil
	}
	return &matchdex.RequesterContext{
		Role:        matchdex.Role(role),
		SubjectText: subject,
		OwnerID:     owner,
		TopK:        topK,
	}
}

func askOnce(ctx context.Context, client *matchdex.Client, query string, rc *matchdex.RequesterContext) error {
	ans, err := client.Chat(ctx, query, rc)
	if err != nil {
		return err
	}
	if jsonOutput() {
		return printJSON(ans)
	}
	printAnswer(ans)
	return nil
}

// chatLoop runs the interactive session. Role and subject survive between
// questions so a follow-up does not repeat them.
func chatLoop(ctx context.Context, client *matchdex.Client, rc *matchdex.RequesterContext) error {
	if rc == nil {
		rc = &matchdex.RequesterContext{}
	}

	for {
		_, action, err := chatMenu.Run()
		if err != nil {
			return err
		}

		if err := handleChatAction(ctx, action, client, rc); err != nil {
			if errors.Is(err, errExit) {
				return nil
			}
			// Ошибка одного вопроса не рвёт сессию.
			fmt.Printf("error: %v\n\n", err)
		}
	}
}

func handleChatAction(ctx context.Context, action string, client *matchdex.Client, rc *matchdex.RequesterContext) error {
	switch action {
	case promptAsk:
		q := promptui.Prompt{Label: "Query"}
		query, err := q.Run()
		if err != nil {
			return err
		}
		return askOnce(ctx, client, query, rc)
	case promptRole:
		sel := promptui.Select{
			Label: "Role",
			Items: []string{string(matchdex.RoleJobSeeker), string(matchdex.RoleEmployer), roleNone},
		}
		_, role, err := sel.Run()
		if err != nil {
			return err
		}
		if role == roleNone {
			rc.Role = ""
		} else {
			rc.Role = matchdex.Role(role)
		}
		return nil
	case promptSubject:
		p := promptui.Prompt{Label: "Subject text"}
		subject, err := p.Run()
		if err != nil {
			return err
		}
		rc.SubjectText = subject
		return nil
	case promptExit:
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func printAnswer(ans matchdex.ChatAnswer) {
	fmt.Printf("intent: %s\n", ans.Intent)
	if ans.Degraded {
		fmt.Printf("degraded: missing %s\n", strings.Join(ans.MissingSources, ", "))
	}

	for _, src := range ans.Sources {
		fmt.Printf("\n[%s] %s (%dms)\n", src.Source, src.Status, src.ElapsedMs)
		if src.Error != "" {
			fmt.Printf("  error: %s\n", src.Error)
			continue
		}
		if len(src.Matches) > 0 {
			printMatches(src.Matches)
		}
		if src.Summary != nil {
			printInsights(*src.Summary)
		}
	}

	if len(ans.Fused) > 0 {
		fmt.Println("\nfused ranking:")
		printMatches(ans.Fused)
	}

	if len(ans.Suggestions) > 0 {
		fmt.Println("\ntry also:")
		for _, s := range ans.Suggestions {
			fmt.Printf("  - %s\n", s)
		}
	}
	fmt.Println()
}
