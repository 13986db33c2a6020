// Package matchdex provides a Go client for the matchdex matching
// service HTTP API.
//
//	client, _ := matchdex.New(
//	    matchdex.WithBaseURL("http://localhost:8080"),
//	    matchdex.WithToken(os.Getenv("MATCHDEX_TOKEN")),
//	)
//
//	rec, _ := client.Resumes().Submit(ctx, matchdex.SubmitRequest{
//	    Text:   "Senior Go engineer, distributed systems, Kubernetes",
//	    Skills: []string{"go", "kubernetes"},
//	})
//
//	res, _ := client.Jobs().Match(ctx, matchdex.MatchRequest{
//	    Query: "backend engineer",
//	    Mode:  matchdex.ModeHybrid,
//	    K:     10,
//	})
//
//	answer, _ := client.Chat(ctx, "find the best jobs for me", &matchdex.RequesterContext{
//	    Role:        matchdex.RoleJobSeeker,
//	    SubjectText: rec.Text,
//	})
//
// Errors carry both the raw API payload (*APIError) and a sentinel
// reachable through errors.Is:
//
//	_, err := client.Resumes().Get(ctx, "missing")
//	if errors.Is(err, matchdex.ErrNotFound) { ... }
package matchdex
