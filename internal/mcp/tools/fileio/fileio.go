// Package fileio provides builtin tools for creating and reading files inside
// a workspace directory. Paths are resolved relative to the workspace; paths
// that escape it (for example "../x", an absolute path elsewhere, or a
// symlink pointing outside) are rejected. All file access goes through an
// [os.Root] opened on the workspace.
//
// Two tools are exported via [NewTools]:
//   - "create_file": write text to a file, creating parent directories.
//   - "read_file": return a file's text content.
package fileio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ltejedor/building-ai-agents/internal/mcp/tools"
	"github.com/ltejedor/building-ai-agents/pkg/provider/llm"
)

// maxReadBytes is the largest file read_file will return.
const maxReadBytes = 1 << 20

type createFileArgs struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

type readFileArgs struct {
	Path string `json:"path"`
}

// safePath resolves p to a path relative to baseDir. Absolute paths are
// accepted when they already point inside baseDir. The check is lexical;
// symlinks are contained by [os.Root].
func safePath(baseDir, p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", fmt.Errorf("path must not be empty")
	}
	base := filepath.Clean(baseDir)

	var joined string
	if filepath.IsAbs(p) {
		joined = filepath.Clean(p)
	} else {
		joined = filepath.Join(base, p)
	}
	rel, err := filepath.Rel(base, joined)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q is outside the workspace", p)
	}
	return rel, nil
}

// withRoot opens the workspace for one call.
func withRoot[T any](baseDir string, fn func(*os.Root) (T, error)) (T, error) {
	root, err := os.OpenRoot(baseDir)
	if err != nil {
		var zero T
		return zero, err
	}
	defer root.Close()
	return fn(root)
}

func createFile(baseDir string) func(context.Context, string) (string, error) {
	return func(ctx context.Context, args string) (string, error) {
		var a createFileArgs
		if err := tools.DecodeArgs("create_file", args, &a); err != nil {
			return "", err
		}
		rel, err := safePath(baseDir, a.Path)
		if err != nil {
			return "", fmt.Errorf("create_file: %w", err)
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}
		_, err = withRoot(baseDir, func(root *os.Root) (struct{}, error) {
			if dir := filepath.Dir(rel); dir != "." {
				if err := root.MkdirAll(dir, 0o755); err != nil {
					return struct{}{}, err
				}
			}
			return struct{}{}, root.WriteFile(rel, []byte(a.Content), 0o644)
		})
		if err != nil {
			return "", fmt.Errorf("create_file: %w", err)
		}
		return "File created at " + a.Path, nil
	}
}

func readFile(baseDir string) func(context.Context, string) (string, error) {
	return func(ctx context.Context, args string) (string, error) {
		var a readFileArgs
		if err := tools.DecodeArgs("read_file", args, &a); err != nil {
			return "", err
		}
		rel, err := safePath(baseDir, a.Path)
		if err != nil {
			return "", fmt.Errorf("read_file: %w", err)
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}
		data, err := withRoot(baseDir, func(root *os.Root) ([]byte, error) {
			info, err := root.Stat(rel)
			if err != nil {
				return nil, err
			}
			if info.IsDir() {
				return nil, fmt.Errorf("%q is a directory", a.Path)
			}
			if info.Size() > maxReadBytes {
				return nil, fmt.Errorf("%q is too large (%d bytes, max %d)", a.Path, info.Size(), maxReadBytes)
			}
			return root.ReadFile(rel)
		})
		if err != nil {
			return "", fmt.Errorf("read_file: %w", err)
		}
		return string(data), nil
	}
}

// NewTools returns the file tools sandboxed to baseDir. baseDir is created if
// it does not exist yet.
func NewTools(baseDir string) ([]tools.Tool, error) {
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("fileio: resolve workspace %q: %w", baseDir, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("fileio: create workspace %q: %w", abs, err)
	}

	return []tools.Tool{
		{
			Definition: llm.ToolDefinition{
				Name:        "create_file",
				Description: "Creates a file at the specified path with the given content. Missing parent directories are created. Returns the location of the created file, or an error.",
				Parameters: tools.Object(map[string]any{
					"path":    tools.String("The path where the file will be created, relative to the workspace."),
					"content": tools.String("The text content to write into the file."),
				}, "path", "content"),
			},
			Handler:     createFile(abs),
			DeclaredP50: 5,
			DeclaredMax: 100,
			SideEffects: true,
		},
		{
			Definition: llm.ToolDefinition{
				Name:        "read_file",
				Description: "Reads a text file from the workspace and returns its content. Files larger than 1 MiB are rejected.",
				Parameters: tools.Object(map[string]any{
					"path": tools.String("The path of the file, relative to the workspace."),
				}, "path"),
			},
			Handler:     readFile(abs),
			DeclaredP50: 5,
			DeclaredMax: 100,
		},
	}, nil
}
