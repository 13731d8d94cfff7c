package vcs

import (
	"context"
	"strconv"
	"strings"
)

// DiffLine is one line of a diff hunk.
type DiffLine struct {
	Type    string `json:"type"` // "add", "del", "ctx"
	OldNum  *int64 `json:"old_num,omitempty"`
	NewNum  *int64 `json:"new_num,omitempty"`
	Content string `json:"content"`
}

// DiffHunk is one `@@ ... @@` hunk of a file's diff.
type DiffHunk struct {
	Header string     `json:"header"`
	Lines  []DiffLine `json:"lines"`
}

// DiffFile is one changed file's status and hunks.
type DiffFile struct {
	Filename  string     `json:"filename"`
	Status    string     `json:"status"`
	Binary    bool       `json:"binary"`
	Additions int64      `json:"additions"`
	Deletions int64      `json:"deletions"`
	Hunks     []DiffHunk `json:"hunks"`
}

// DiffSummary aggregates counts across all files in a Diff result.
type DiffSummary struct {
	TotalFiles     int64 `json:"totalFiles"`
	TotalAdditions int64 `json:"totalAdditions"`
	TotalDeletions int64 `json:"totalDeletions"`
}

// Diff is the structured result of parsing a unified diff.
type Diff struct {
	Files   []DiffFile  `json:"files"`
	Summary DiffSummary `json:"summary"`
}

type changedFile struct {
	status   string
	filename string
}

// Files runs `git add -N .` (so untracked files appear in the diff as pure
// additions) followed by `git diff -U3`, then parses the result. A diff
// failure yields an empty, zero-summary Diff rather than an error — matching
// the REST collaborator contract that a bad repo state renders as "no
// changes" rather than a 500.
func (r *Repository) Files(ctx context.Context, gitRoot string) Diff {
	_, _ = r.runner.RunIn(ctx, gitRoot, "git", "add", "-N", ".")

	raw, err := r.runner.RunIn(ctx, gitRoot, "git", "diff", "-U3")
	if err != nil {
		return Diff{}
	}

	return parseUnifiedDiff(raw, r.changedFiles(ctx, gitRoot))
}

func (r *Repository) changedFiles(ctx context.Context, gitRoot string) []changedFile {
	out, err := r.runner.RunIn(ctx, gitRoot, "git", "diff", "--name-status")
	if err != nil {
		return nil
	}

	var files []changedFile
	for _, line := range strings.Split(out, "\n") {
		parts := strings.SplitN(line, "\t", 2)
		if len(parts) == 2 {
			files = append(files, changedFile{status: parts[0], filename: parts[1]})
		}
	}
	return files
}

// parseUnifiedDiff parses `git diff -U3` output into structured files and
// hunks. It tracks per-file accumulation across "--- a/..."/"+++ b/..."
// header pairs and "@@ ... @@" hunk headers, mirroring the state machine a
// line-oriented unified-diff reader needs: nothing here depends on git's
// diff library, only its well-known plain-text format.
func parseUnifiedDiff(raw string, changed []changedFile) Diff {
	var files []DiffFile
	var totalAdditions, totalDeletions int64

	var currentFilename string
	var currentHunks []DiffHunk
	var currentLines []DiffLine
	var currentHeader string
	var fileAdds, fileDels int64
	var oldLine, newLine int64
	var isBinary bool

	flush := func() {
		if len(currentLines) > 0 {
			currentHunks = append(currentHunks, DiffHunk{Header: currentHeader, Lines: currentLines})
			currentLines = nil
		}
		if currentFilename != "" {
			status := "M"
			for _, c := range changed {
				if c.filename == currentFilename {
					status = c.status
					break
				}
			}
			files = append(files, DiffFile{
				Filename:  currentFilename,
				Status:    status,
				Binary:    isBinary,
				Additions: fileAdds,
				Deletions: fileDels,
				Hunks:     currentHunks,
			})
			currentHunks = nil
		}
	}

	resetFileState := func() {
		totalAdditions += fileAdds
		totalDeletions += fileDels
		currentFilename = ""
		currentHunks = nil
		currentLines = nil
		currentHeader = ""
		fileAdds = 0
		fileDels = 0
		isBinary = false
	}

	for _, line := range strings.Split(raw, "\n") {
		switch {
		case strings.HasPrefix(line, "+++ b/"):
			if currentFilename == "" {
				currentFilename = line[6:]
			}
		case strings.HasPrefix(line, "--- a/"):
			flush()
			resetFileState()
			currentFilename = strings.TrimPrefix(line, "--- a/")
		case strings.HasPrefix(line, "--- /dev/null"):
			flush()
			resetFileState()
		case strings.HasPrefix(line, "diff --git"):
			continue
		case strings.HasPrefix(line, "index ") || strings.HasPrefix(line, "new file") || strings.HasPrefix(line, "deleted file"):
			continue
		case strings.HasPrefix(line, "Binary files"):
			isBinary = true
		case strings.HasPrefix(line, "@@ "):
			if len(currentLines) > 0 {
				currentHunks = append(currentHunks, DiffHunk{Header: currentHeader, Lines: currentLines})
				currentLines = nil
			}
			currentHeader = line
			oldLine, newLine = parseHunkHeader(line)
		case strings.HasPrefix(line, "+"):
			fileAdds++
			n := newLine
			currentLines = append(currentLines, DiffLine{Type: "add", NewNum: &n, Content: line[1:]})
			newLine++
		case strings.HasPrefix(line, "-"):
			fileDels++
			o := oldLine
			currentLines = append(currentLines, DiffLine{Type: "del", OldNum: &o, Content: line[1:]})
			oldLine++
		case line == "":
			continue
		default:
			content := strings.TrimPrefix(line, " ")
			o, n := oldLine, newLine
			currentLines = append(currentLines, DiffLine{Type: "ctx", OldNum: &o, NewNum: &n, Content: content})
			oldLine++
			newLine++
		}
	}

	flush()
	totalAdditions += fileAdds
	totalDeletions += fileDels

	return Diff{
		Files: files,
		Summary: DiffSummary{
			TotalFiles:     int64(len(files)),
			TotalAdditions: totalAdditions,
			TotalDeletions: totalDeletions,
		},
	}
}

// parseHunkHeader extracts the starting old/new line numbers from a
// "@@ -old_start,old_count +new_start,new_count @@" header, defaulting to 1
// for either side if parsing fails.
func parseHunkHeader(header string) (oldLine, newLine int64) {
	oldLine, newLine = 1, 1
	fields := strings.Fields(header)
	if len(fields) < 3 {
		return
	}
	if n, err := strconv.ParseInt(strings.SplitN(strings.TrimPrefix(fields[1], "-"), ",", 2)[0], 10, 64); err == nil {
		oldLine = n
	}
	if n, err := strconv.ParseInt(strings.SplitN(strings.TrimPrefix(fields[2], "+"), ",", 2)[0], 10, 64); err == nil {
		newLine = n
	}
	return
}
