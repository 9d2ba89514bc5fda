package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// State captures the repository state a cached answer was produced
// against. Any component changing invalidates every key derived from it.
type State struct {
	Branch       string `json:"branch"`
	Commit       string `json:"commit"`
	DeployStatus string `json:"deploy_status"`
}

// Signature folds the state into the short digest used in cache keys.
func (s State) Signature() string {
	sum := sha256.Sum256([]byte(s.Branch + ":" + s.Commit + ":" + s.DeployStatus))
	return hex.EncodeToString(sum[:])[:8]
}

// StateResolver reads git and deploy state for projects under a common
// root. Lookups are cached in-process; callers invalidate a project
// when they learn its state moved (webhook, sweep, manual clear).
type StateResolver struct {
	root   string
	logger *slog.Logger

	mu     sync.Mutex
	states map[string]State
}

// NewStateResolver creates a resolver for projects under root.
func NewStateResolver(root string, logger *slog.Logger) *StateResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &StateResolver{
		root:   root,
		logger: logger,
		states: make(map[string]State),
	}
}

// StateFor returns the project's current state, serving from the
// in-process cache when possible. Projects that aren't git checkouts
// still resolve: their git fields read "unknown", which keeps the
// signature stable.
func (r *StateResolver) StateFor(ctx context.Context, project string) State {
	r.mu.Lock()
	if state, ok := r.states[project]; ok {
		r.mu.Unlock()
		return state
	}
	r.mu.Unlock()

	state := r.resolve(ctx, project)

	r.mu.Lock()
	r.states[project] = state
	r.mu.Unlock()
	return state
}

// Invalidate drops the cached state for a project.
func (r *StateResolver) Invalidate(project string) {
	r.mu.Lock()
	delete(r.states, project)
	r.mu.Unlock()
}

func (r *StateResolver) resolve(ctx context.Context, project string) State {
	dir := filepath.Join(r.root, project)

	state := State{
		Branch:       r.git(ctx, dir, "rev-parse", "--abbrev-ref", "HEAD"),
		Commit:       r.git(ctx, dir, "rev-parse", "--short", "HEAD"),
		DeployStatus: readDeployStatus(dir),
	}
	return state
}

// git runs one git query against dir with a hard 5 second cap and
// returns "unknown" on any failure.
func (r *StateResolver) git(ctx context.Context, dir string, args ...string) string {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cmdArgs := append([]string{"-C", dir}, args...)
	out, err := exec.CommandContext(ctx, "git", cmdArgs...).Output()
	if err != nil {
		r.logger.Debug("git state query failed", "dir", dir, "args", strings.Join(args, " "), "error", err)
		return "unknown"
	}
	return strings.TrimSpace(string(out))
}

// readDeployStatus reads the project's .status marker file. Missing
// marker means the deploy state is unknown.
func readDeployStatus(dir string) string {
	data, err := os.ReadFile(filepath.Join(dir, ".status"))
	if err != nil {
		return "unknown"
	}
	return strings.TrimSpace(string(data))
}
