// Command board is the command-line client for the socialgrid API.
//
//	board [-server URL] [-user TOKEN] post -image PATH -handle TEXT
//	board feed
//	board whoami
//	board quiz -page N
//	board answer -id N -choice M
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"socialgrid/internal/client"
	"socialgrid/internal/submission"
)

const defaultServer = "http://localhost:8080"

type app struct {
	api    *client.Client
	userID string
	out    io.Writer
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	global := flag.NewFlagSet("board", flag.ContinueOnError)
	serverURL := global.String("server", envOr("SOCIALGRID_URL", defaultServer), "API base URL")
	userOverride := global.String("user", "", "Use this user token instead of the stored identity")
	identityPath := global.String("identity", "", "Identity file (default <config dir>/socialgrid/identity.yml)")
	if err := global.Parse(args); err != nil {
		return err
	}

	rest := global.Args()
	if len(rest) == 0 {
		return errors.New("missing command (post, feed, whoami, quiz, answer)")
	}

	userID, err := resolveUser(*userOverride, *identityPath)
	if err != nil {
		return err
	}

	a := &app{api: client.New(*serverURL, nil), userID: userID, out: out}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	switch cmd, cmdArgs := rest[0], rest[1:]; cmd {
	case "post":
		return a.post(ctx, cmdArgs)
	case "feed":
		return a.feed(ctx)
	case "whoami":
		return a.whoami(ctx)
	case "quiz":
		return a.quiz(ctx, cmdArgs)
	case "answer":
		return a.answer(ctx, cmdArgs)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func resolveUser(override, path string) (string, error) {
	if u := strings.TrimSpace(override); u != "" {
		return u, nil
	}
	if path == "" {
		p, err := client.DefaultIdentityPath()
		if err != nil {
			return "", err
		}
		path = p
	}
	id, err := client.LoadOrCreateIdentity(path)
	if err != nil {
		return "", err
	}
	return id.UserID, nil
}

func (a *app) post(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("post", flag.ContinueOnError)
	imagePath := fs.String("image", "", "Image file to upload (max 4MB)")
	handle := fs.String("handle", "", "Twitter/X handle or profile URL")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *imagePath == "" || strings.TrimSpace(*handle) == "" {
		return errors.New("Please fill in all fields")
	}

	info, err := os.Stat(*imagePath)
	if err != nil {
		return err
	}
	if info.Size() > submission.MaxImageBytes {
		return errors.New(submission.MsgImageTooLarge)
	}
	data, err := os.ReadFile(*imagePath)
	if err != nil {
		return err
	}

	sub, err := submission.Package(*imagePath, data, *handle, a.userID)
	if err != nil {
		return err
	}

	resp, err := a.api.Submit(ctx, sub)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s (%s)\n", resp.Message, resp.Post.ID)
	return nil
}

func (a *app) feed(ctx context.Context) error {
	feed, err := a.api.Feed(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%d posts from %d users\n", feed.TotalPosts, feed.TotalUsers)
	for _, p := range feed.Posts {
		fmt.Fprintf(a.out, "%s  %-24s  %s  %d bytes\n",
			p.CreatedAt.Format(time.RFC3339), p.TwitterURL, p.ID, len(p.ImageURL))
	}
	return nil
}

func (a *app) whoami(ctx context.Context) error {
	fmt.Fprintf(a.out, "user: %s\n", a.userID)
	quota, err := a.api.Quota(ctx, a.userID)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "posts: %d/%d (%d remaining)\n", quota.Used, quota.Max, quota.Remaining)
	return nil
}

func (a *app) quiz(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("quiz", flag.ContinueOnError)
	page := fs.Int("page", 1, "Page number")
	if err := fs.Parse(args); err != nil {
		return err
	}

	p, err := a.api.Quiz(ctx, *page)
	if err != nil {
		return err
	}
	for _, q := range p.Questions {
		fmt.Fprintf(a.out, "Question %d: %s\n", q.ID, q.Question)
		for i, opt := range q.Options {
			fmt.Fprintf(a.out, "  [%d] %s\n", i, opt)
		}
	}
	fmt.Fprintf(a.out, "Page %d of %d\n", p.Page, p.TotalPages)
	return nil
}

func (a *app) answer(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("answer", flag.ContinueOnError)
	id := fs.Int("id", 0, "Question id")
	choice := fs.Int("choice", -1, "Option index")
	if err := fs.Parse(args); err != nil {
		return err
	}

	res, err := a.api.Answer(ctx, *id, *choice)
	if err != nil {
		return err
	}
	if res.Correct {
		fmt.Fprintln(a.out, "Correct!")
	} else {
		fmt.Fprintf(a.out, "Incorrect, the answer is option %d.\n", res.CorrectAnswer)
	}
	fmt.Fprintln(a.out, res.Explanation)
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
