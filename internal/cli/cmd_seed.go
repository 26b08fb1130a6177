package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/louisbranch/postbook/internal/blog/post"
	"github.com/louisbranch/postbook/internal/blog/storage/snapshotstore"
	"github.com/louisbranch/postbook/internal/blog/storage/sqlite"
	"github.com/louisbranch/postbook/internal/platform/kv"
	platformlog "github.com/louisbranch/postbook/internal/platform/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	seedTargetLocal  = "local"
	seedTargetServer = "server"
)

// seedFile is the YAML document accepted by the seed command.
type seedFile struct {
	Posts []seedPost `yaml:"posts"`
}

type seedPost struct {
	Title     string        `yaml:"title"`
	Content   string        `yaml:"content"`
	CreatedAt string        `yaml:"createdAt"`
	Comments  []seedComment `yaml:"comments"`
}

type seedComment struct {
	Content   string `yaml:"content"`
	CreatedAt string `yaml:"createdAt"`
}

type seedResult struct {
	Target   string `json:"target"`
	Posts    int    `json:"posts"`
	Comments int    `json:"comments"`
}

func newSeedCommand(deps commandDeps) *cobra.Command {
	var target string

	cmd := &cobra.Command{
		Use:   "seed FILE",
		Short: "Load posts and comments from a YAML file",
		Example: "  postbookctl seed fixtures/posts.yaml\n" +
			"  postbookctl seed --target server fixtures/posts.yaml",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return usageErrorf("seed requires exactly one FILE argument")
			}
			target = strings.ToLower(strings.TrimSpace(target))
			if target != seedTargetLocal && target != seedTargetServer {
				return usageErrorf("unknown seed target %q (want %s or %s)", target, seedTargetLocal, seedTargetServer)
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return mapCommandError(err)
			}
			file, err := parseSeedFile(data)
			if err != nil {
				return usageErrorf("parse seed file: %v", err)
			}

			var result seedResult
			if target == seedTargetServer {
				result, err = seedServer(cmd.Context(), deps, file)
			} else {
				result, err = seedLocal(cmd.Context(), deps, file)
			}
			if err != nil {
				return mapCommandError(err)
			}
			if deps.globals.JSON {
				return mapCommandError(printJSON(deps.out, result))
			}
			_, err = fmt.Fprintf(deps.out, "seeded %d posts and %d comments into %s\n", result.Posts, result.Comments, result.Target)
			return mapCommandError(err)
		},
	}
	cmd.Flags().StringVar(&target, "target", seedTargetLocal, "Where to insert the data (local or server)")
	return cmd
}

func parseSeedFile(data []byte) (seedFile, error) {
	var file seedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return seedFile{}, err
	}
	return file, nil
}

// seedTime returns a clock fixed at value, or time.Now when value is empty.
func seedTime(value string) (func() time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Now, nil
	}
	parsed, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return nil, fmt.Errorf("parse createdAt %q: %w", value, err)
	}
	return func() time.Time { return parsed }, nil
}

// buildThread validates one seed entry into a post with its comments.
func buildThread(entry seedPost) (post.Thread, error) {
	now, err := seedTime(entry.CreatedAt)
	if err != nil {
		return post.Thread{}, err
	}
	p, err := post.CreatePost(post.CreatePostInput{Title: entry.Title, Content: entry.Content}, now, nil)
	if err != nil {
		return post.Thread{}, fmt.Errorf("post %q: %w", entry.Title, err)
	}
	thread := post.Thread{Post: p}
	for _, c := range entry.Comments {
		commentNow, err := seedTime(c.CreatedAt)
		if err != nil {
			return post.Thread{}, err
		}
		comment, err := post.CreateComment(post.CreateCommentInput{PostID: p.ID, Content: c.Content}, commentNow, nil)
		if err != nil {
			return post.Thread{}, fmt.Errorf("comment on %q: %w", entry.Title, err)
		}
		thread.Comments = append(thread.Comments, comment)
	}
	return thread, nil
}

func insertThread(ctx context.Context, queries *sqlite.Queries, thread post.Thread) error {
	if err := queries.PutPost(ctx, thread.Post); err != nil {
		return err
	}
	for _, comment := range thread.Comments {
		if err := queries.PutComment(ctx, comment); err != nil {
			return err
		}
	}
	return nil
}

func buildThreads(file seedFile) ([]post.Thread, error) {
	threads := make([]post.Thread, 0, len(file.Posts))
	for _, entry := range file.Posts {
		thread, err := buildThread(entry)
		if err != nil {
			return nil, err
		}
		threads = append(threads, thread)
	}
	return threads, nil
}

func countResult(target string, threads []post.Thread) seedResult {
	result := seedResult{Target: target, Posts: len(threads)}
	for _, thread := range threads {
		result.Comments += len(thread.Comments)
	}
	return result
}

// seedLocal inserts into the snapshot database, committing once per post.
func seedLocal(ctx context.Context, deps commandDeps, file seedFile) (seedResult, error) {
	threads, err := buildThreads(file)
	if err != nil {
		return seedResult{}, err
	}

	var result seedResult
	err = withKV(ctx, deps, func(ctx context.Context, store kv.Store) error {
		local, err := snapshotstore.Open(ctx, store, snapshotstore.Options{
			Key:    deps.globals.SnapshotKey,
			Logger: platformlog.Discard(),
		})
		if err != nil {
			return err
		}
		defer local.Close()
		if initErr := local.DB().InitErr(); initErr != nil {
			return initErr
		}

		queries := sqlite.New(local.DB().SQL())
		for _, thread := range threads {
			if err := insertThread(ctx, queries, thread); err != nil {
				return err
			}
			if err := local.DB().Commit(ctx); err != nil {
				return fmt.Errorf("commit snapshot: %w", err)
			}
		}
		result = countResult(seedTargetLocal, threads)
		return nil
	})
	return result, err
}

// seedServer inserts into the file-backed server database.
func seedServer(ctx context.Context, deps commandDeps, file seedFile) (seedResult, error) {
	threads, err := buildThreads(file)
	if err != nil {
		return seedResult{}, err
	}
	store, err := sqlite.Open(ctx, deps.globals.ServerDBPath)
	if err != nil {
		return seedResult{}, err
	}
	defer store.Close()

	for _, thread := range threads {
		if err := insertThread(ctx, store.Queries, thread); err != nil {
			return seedResult{}, err
		}
	}
	return countResult(seedTargetServer, threads), nil
}
