package github

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/google/go-github/v81/github"
)

// Doc is one markdown file fetched from a repository.
type Doc struct {
	Path    string // relative path under the base directory
	Content []byte
	SHA     string
	RawURL  string
}

// Fetcher lists and downloads the markdown files of one repository
// directory tree.
type Fetcher struct {
	client   *Client
	owner    string
	repo     string
	basePath string
}

// NewFetcher builds a fetcher rooted at basePath inside owner/repo.
func NewFetcher(client *Client, owner, repo, basePath string) *Fetcher {
	return &Fetcher{client: client, owner: owner, repo: repo, basePath: basePath}
}

// ListDocs walks the directory tree and returns the relative paths of all
// markdown files.
func (f *Fetcher) ListDocs(ctx context.Context) ([]string, error) {
	return f.listDir(ctx, f.basePath, "")
}

func (f *Fetcher) listDir(ctx context.Context, fullPath, relPath string) ([]string, error) {
	_, entries, _, err := f.client.Repositories.GetContents(ctx, f.owner, f.repo, fullPath, nil)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", fullPath, err)
	}

	var docs []string
	for _, entry := range entries {
		if entry.Type == nil || entry.Name == nil {
			continue
		}
		entryRel := path.Join(relPath, *entry.Name)

		switch *entry.Type {
		case "file":
			if strings.HasSuffix(*entry.Name, ".md") {
				docs = append(docs, entryRel)
			}
		case "dir":
			sub, err := f.listDir(ctx, path.Join(fullPath, *entry.Name), entryRel)
			if err != nil {
				return nil, err
			}
			docs = append(docs, sub...)
		}
	}
	return docs, nil
}

// FetchDoc downloads one markdown file by its relative path.
func (f *Fetcher) FetchDoc(ctx context.Context, relPath string) (*Doc, error) {
	fullPath := path.Join(f.basePath, relPath)

	file, _, _, err := f.client.Repositories.GetContents(ctx, f.owner, f.repo, fullPath, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", fullPath, err)
	}
	if file == nil {
		return nil, fmt.Errorf("fetch %s: path is a directory", fullPath)
	}

	content, err := file.GetContent()
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", fullPath, err)
	}

	return &Doc{
		Path:    relPath,
		Content: []byte(content),
		SHA:     file.GetSHA(),
		RawURL:  fmt.Sprintf("https://raw.githubusercontent.com/%s/%s/main/%s", f.owner, f.repo, fullPath),
	}, nil
}

// LatestCommit returns the SHA of the newest commit touching the base
// directory, for logging which revision a run mirrored.
func (f *Fetcher) LatestCommit(ctx context.Context) (string, error) {
	commits, _, err := f.client.Repositories.ListCommits(ctx, f.owner, f.repo, &github.CommitsListOptions{
		Path:        f.basePath,
		ListOptions: github.ListOptions{PerPage: 1},
	})
	if err != nil {
		return "", fmt.Errorf("list commits: %w", err)
	}
	if len(commits) == 0 || commits[0].SHA == nil {
		return "", fmt.Errorf("no commits found for %s", f.basePath)
	}
	return *commits[0].SHA, nil
}
