package porcelain

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/odvcencio/hull/pkg/object"
	"github.com/odvcencio/hull/pkg/remote"
	"github.com/odvcencio/hull/pkg/repo"
)

// Facade is the single entry point for the porcelain operations: it wraps
// a *repo.Repo and an optional commit Signer, sequencing the lower-level
// primitives and normalizing their failures into this package's error
// taxonomy. Several cmd/hull commands are thin wrappers over Facade
// methods; clone, pull, push and the commands Facade has no method for
// call pkg/repo and pkg/remote directly (argument parsing, progress
// output, transport-fallback UX). Facade is the surface embedders should use.
type Facade struct {
	Repo *repo.Repo

	// Signer, when set, signs every commit made through Commit.
	Signer repo.CommitSigner
}

// Init creates a new repository at path and wraps it in a Facade.
func Init(path string) (*Facade, error) {
	r, err := repo.Init(path)
	if err != nil {
		return nil, wrapErr(ErrRepositoryMissing, "init", err)
	}
	return &Facade{Repo: r}, nil
}

// Existing opens the repository containing path.
func Existing(path string) (*Facade, error) {
	r, err := repo.Open(path)
	if err != nil {
		return nil, wrapErr(ErrRepositoryMissing, "open", err)
	}
	return &Facade{Repo: r}, nil
}

// Wrap adapts an already-open repo.Repo into a Facade, for callers (tests,
// other packages) that construct a *repo.Repo directly.
func Wrap(r *repo.Repo) *Facade {
	return &Facade{Repo: r}
}

// CommitSigner installs signer as the commit-signing hook used by Commit.
func (f *Facade) CommitSigner(signer repo.CommitSigner) {
	f.Signer = signer
}

// Commit stages the current index into a new commit, signing it when a
// CommitSigner has been installed.
func (f *Facade) Commit(message, author string) (object.Hash, error) {
	h, err := f.Repo.CommitWithSigner(message, author, f.Signer)
	if err != nil {
		var cf *repo.ErrCommitFailed
		if asCommitFailed(err, &cf) {
			return "", wrapErr(ErrCommitFailed, "commit", err)
		}
		return "", wrapErr(ErrPreconditionFailed, "commit", err)
	}
	return h, nil
}

func asCommitFailed(err error, target **repo.ErrCommitFailed) bool {
	for err != nil {
		if cf, ok := err.(*repo.ErrCommitFailed); ok {
			*target = cf
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// Checkout switches the working tree and HEAD to target (a branch name,
// tag, or commit hash).
func (f *Facade) Checkout(target string) error {
	if err := f.Repo.Checkout(target); err != nil {
		return wrapErr(ErrPreconditionFailed, "checkout", err)
	}
	return nil
}

// Status reports the full working-tree/index/HEAD reconciliation, per
// StatusReconciler.
func (f *Facade) Status() ([]repo.StatusEntry, error) {
	entries, err := f.Repo.Status()
	if err != nil {
		var usc *repo.UnexpectedStatusCaseError
		if errorsAs(err, &usc) {
			return nil, wrapErr(ErrUnexpectedStatusCase, "status", err)
		}
		return nil, wrapErr(ErrRepositoryMissing, "status", err)
	}
	return entries, nil
}

func errorsAs(err error, target **repo.UnexpectedStatusCaseError) bool {
	for err != nil {
		if usc, ok := err.(*repo.UnexpectedStatusCaseError); ok {
			*target = usc
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// Add stages paths into the index.
func (f *Facade) Add(paths []string) error {
	if err := f.Repo.Add(paths); err != nil {
		return wrapErr(ErrIndexUpdateFailed, "add", err)
	}
	return nil
}

// LsFiles runs LsFilesMerge over the staged index and work tree.
func (f *Facade) LsFiles() ([]repo.LsFileEntry, error) {
	entries, err := f.Repo.LsFiles()
	if err != nil {
		return nil, wrapErr(ErrRepositoryMissing, "ls-files", err)
	}
	return entries, nil
}

// RevList runs HistoryQuery's revList operation.
func (f *Facade) RevList(opts repo.RevListOptions) ([]repo.RevListEntry, error) {
	entries, err := f.Repo.RevList(opts)
	if err != nil {
		return nil, wrapErr(ErrRefNotResolvable, "rev-list", err)
	}
	return entries, nil
}

// Whatchanged runs HistoryQuery's whatchanged operation.
func (f *Facade) Whatchanged(opts repo.RevListOptions) ([]repo.ChangeEntry, error) {
	entries, err := f.Repo.Whatchanged(opts)
	if err != nil {
		return nil, wrapErr(ErrRefNotResolvable, "whatchanged", err)
	}
	return entries, nil
}

// GetBranch returns the name of the branch HEAD points to, or "" when HEAD
// is detached.
func (f *Facade) GetBranch() (string, error) {
	name, err := f.Repo.CurrentBranch()
	if err != nil {
		return "", wrapErr(ErrRefNotResolvable, "get-branch", err)
	}
	return name, nil
}

// Reflog returns up to limit entries (newest first) for ref, or HEAD's
// reflog when ref is empty.
func (f *Facade) Reflog(ref string, limit int) ([]repo.ReflogEntry, error) {
	entries, err := f.Repo.ReadReflog(ref, limit)
	if err != nil {
		return nil, wrapErr(ErrRefNotResolvable, "reflog", err)
	}
	return entries, nil
}

// AddRemote records remoteURL under name in repository config.
func (f *Facade) AddRemote(name, remoteURL string) error {
	if err := f.Repo.SetRemote(name, remoteURL); err != nil {
		return wrapErr(ErrPreconditionFailed, "remote-add", err)
	}
	return nil
}

// defaultBranchFromRefs picks Clone's target branch when none was
// requested: heads/main if present, otherwise the lexicographically first
// remaining head. Available heads are sorted by name before the decision
// so the pick is deterministic across runs, mirroring cmd/hull's
// chooseDefaultBranch.
func defaultBranchFromRefs(remoteRefs map[string]object.Hash) string {
	if h, ok := remoteRefs["heads/main"]; ok && strings.TrimSpace(string(h)) != "" {
		return "main"
	}

	branches := make([]string, 0, len(remoteRefs))
	for name, h := range remoteRefs {
		if strings.TrimSpace(string(h)) != "" && strings.HasPrefix(name, "heads/") {
			branches = append(branches, name)
		}
	}
	if len(branches) == 0 {
		return ""
	}
	sort.Strings(branches)
	return strings.TrimPrefix(branches[0], "heads/")
}

// Clone fetches every ref from remoteURL into a new repository at dest,
// checks out branch (or the remote's default branch when empty), and
// returns the resulting Facade. This is the façade's reduced core of
// cmd/hull's clone command: it covers only the remote-URL path (spec
// §4.1's Clone operation names a URL, not a local filesystem source), so
// the CLI's local-directory convenience copy is not duplicated here.
func Clone(ctx context.Context, remoteURL, dest, branch string) (*Facade, error) {
	client, err := remote.NewClient(remoteURL)
	if err != nil {
		return nil, wrapErr(ErrTransportFailure, "clone", err)
	}

	remoteRefs, err := client.ListRefs(ctx)
	if err != nil {
		return nil, wrapErr(ErrTransportFailure, "clone", err)
	}

	r, err := repo.Init(dest)
	if err != nil {
		return nil, wrapErr(ErrRepositoryMissing, "clone", err)
	}
	f := &Facade{Repo: r}

	wants := make([]object.Hash, 0, len(remoteRefs))
	for _, h := range remoteRefs {
		if strings.TrimSpace(string(h)) != "" {
			wants = append(wants, h)
		}
	}
	if len(wants) > 0 {
		if _, err := remote.FetchIntoStore(ctx, client, r.Store, wants, nil); err != nil {
			return nil, wrapErr(ErrTransportFailure, "clone", err)
		}
	}

	for name, h := range remoteRefs {
		if strings.TrimSpace(string(h)) == "" || !strings.HasPrefix(name, "heads/") {
			continue
		}
		if err := r.CreateBranch(strings.TrimPrefix(name, "heads/"), h); err != nil {
			return nil, wrapErr(ErrRefNotResolvable, "clone", err)
		}
	}

	target := branch
	if target == "" {
		target = defaultBranchFromRefs(remoteRefs)
	}
	if target != "" {
		if err := f.Checkout(target); err != nil {
			return nil, err
		}
	}

	if err := r.SetRemote("origin", remoteURL); err != nil {
		return nil, wrapErr(ErrPreconditionFailed, "clone", err)
	}

	return f, nil
}

// Fetch downloads every ref tip from the named remote (or its configured
// URL) into the local object store and updates the remote-tracking refs
// under refs/remotes/<name>/. It does not touch HEAD or any local branch.
func (f *Facade) Fetch(ctx context.Context, remoteName string) error {
	if remoteName == "" {
		remoteName = "origin"
	}
	remoteURL, err := f.Repo.RemoteURL(remoteName)
	if err != nil {
		return wrapErr(ErrPreconditionFailed, "fetch", err)
	}

	client, err := remote.NewClient(remoteURL)
	if err != nil {
		return wrapErr(ErrTransportFailure, "fetch", err)
	}
	remoteRefs, err := client.ListRefs(ctx)
	if err != nil {
		return wrapErr(ErrTransportFailure, "fetch", err)
	}

	haves, err := f.localRefTips()
	if err != nil {
		return wrapErr(ErrRepositoryMissing, "fetch", err)
	}

	wants := make([]object.Hash, 0, len(remoteRefs))
	for _, h := range remoteRefs {
		if strings.TrimSpace(string(h)) != "" {
			wants = append(wants, h)
		}
	}
	if len(wants) > 0 {
		if _, err := remote.FetchIntoStore(ctx, client, f.Repo.Store, wants, haves); err != nil {
			return wrapErr(ErrTransportFailure, "fetch", err)
		}
	}

	for name, h := range remoteRefs {
		if strings.TrimSpace(string(h)) == "" {
			continue
		}
		trackingRef := fmt.Sprintf("refs/remotes/%s/%s", remoteName, strings.TrimPrefix(name, "/"))
		if err := f.Repo.UpdateRef(trackingRef, h); err != nil {
			return wrapErr(ErrRefNotResolvable, "fetch", err)
		}
	}
	return nil
}

func (f *Facade) localRefTips() ([]object.Hash, error) {
	refs, err := f.Repo.ListRefs("")
	if err != nil {
		return nil, err
	}
	tips := make([]object.Hash, 0, len(refs))
	for _, h := range refs {
		if strings.TrimSpace(string(h)) != "" {
			tips = append(tips, h)
		}
	}
	return tips, nil
}

type pushWant struct {
	refName string // "heads/<name>" or "tags/<name>"
	local   object.Hash
}

// Push uploads objects for localBranch (or, with pushAllBranches, every
// local branch under its own name; with pushTags, every local tag
// alongside) to the named remote, then applies the ref updates and
// classifies every one against spec §4.1's REJECTED_* vocabulary. A
// non-fast-forward update is never even sent unless force is set, because
// this transport's ref-update CAS is a plain hash-equality check, not an
// ancestry check, and would otherwise silently accept it; instead it is
// reported as REJECTED_NONFASTFORWARD alongside the transport's own
// classifications, so callers get one report covering every requested
// ref rather than an abort on the first unsafe one. receivePackPath, when
// set, is forwarded to the transport as the remote-side receive-pack
// override (see remote.Client.SetOptionReceivePack); the "got" HTTP
// transport this client speaks has no such concept and ignores it, same
// as cmd/hull's push command's git-native fallback does not use it either.
// The returned bool is spec §4.1's push result: true iff no requested ref
// update classified as REJECTED_*.
func (f *Facade) Push(ctx context.Context, remoteName, localBranch, remoteBranch string, force, pushAllBranches, pushTags bool, receivePackPath string) (bool, []remote.RefUpdateResult, error) {
	if remoteName == "" {
		remoteName = "origin"
	}

	remoteURL, err := f.Repo.RemoteURL(remoteName)
	if err != nil {
		return false, nil, wrapErr(ErrPreconditionFailed, "push", err)
	}

	client, err := remote.NewClient(remoteURL)
	if err != nil {
		return false, nil, wrapErr(ErrTransportFailure, "push", err)
	}
	if receivePackPath != "" {
		client.SetOptionReceivePack(receivePackPath)
	}

	remoteRefs, err := client.ListRefs(ctx)
	if err != nil {
		return false, nil, wrapErr(ErrTransportFailure, "push", err)
	}

	wanted, err := f.resolvePushWants(localBranch, remoteBranch, pushAllBranches, pushTags)
	if err != nil {
		return false, nil, err
	}

	haves, err := f.localRefTips()
	if err != nil {
		return false, nil, wrapErr(ErrRepositoryMissing, "push", err)
	}

	oldOf := make(map[string]object.Hash, len(wanted))
	nonFF := make(map[string]bool, len(wanted))
	for _, w := range wanted {
		remoteHash, hasRemote := remoteRefs[w.refName]
		if hasRemote && strings.TrimSpace(string(remoteHash)) == "" {
			hasRemote = false
		}
		if !hasRemote {
			continue
		}
		oldOf[w.refName] = remoteHash
		if remoteHash == w.local || force {
			continue
		}
		if strings.HasPrefix(w.refName, "heads/") {
			if !f.Repo.Store.Has(remoteHash) {
				if _, err := remote.FetchIntoStore(ctx, client, f.Repo.Store, []object.Hash{remoteHash}, haves); err != nil {
					return false, nil, wrapErr(ErrTransportFailure, "push: safety check", err)
				}
			}
			base, err := f.Repo.FindMergeBase(w.local, remoteHash)
			if err != nil {
				return false, nil, wrapErr(ErrPreconditionFailed, "push: safety check", err)
			}
			if base != remoteHash {
				nonFF[w.refName] = true
			}
		} else {
			nonFF[w.refName] = true
		}
	}

	roots := make([]object.Hash, 0, len(remoteRefs))
	for _, h := range remoteRefs {
		if strings.TrimSpace(string(h)) != "" && f.Repo.Store.Has(h) {
			roots = append(roots, h)
		}
	}

	tips := make([]object.Hash, 0, len(wanted))
	updates := make([]remote.RefUpdate, 0, len(wanted))
	for _, w := range wanted {
		if nonFF[w.refName] {
			continue
		}
		tips = append(tips, w.local)
		old := oldOf[w.refName]
		newHash := w.local
		updates = append(updates, remote.RefUpdate{Name: w.refName, Old: &old, New: &newHash})
	}

	if len(tips) > 0 {
		objectsToPush, err := remote.CollectObjectsForPush(f.Repo.Store, tips, roots)
		if err != nil {
			return false, nil, wrapErr(ErrTransportFailure, "push", err)
		}
		if len(objectsToPush) > 0 {
			if err := client.PushObjectsPack(ctx, objectsToPush); err != nil {
				return false, nil, wrapErr(ErrTransportFailure, "push", err)
			}
		}
	}

	var updated map[string]object.Hash
	if len(updates) > 0 {
		updated, err = client.UpdateRefs(ctx, updates)
		if err != nil {
			return false, nil, wrapErr(ErrTransportFailure, "push", err)
		}
	}

	results := make([]remote.RefUpdateResult, 0, len(wanted))
	for _, w := range wanted {
		result := remote.ClassifyRefUpdate(w.refName, oldOf[w.refName], w.local, updated, nonFF[w.refName])
		results = append(results, result)

		if !result.Status.Rejected() && strings.HasPrefix(w.refName, "heads/") {
			finalHash := result.NewHash
			if strings.TrimSpace(string(finalHash)) == "" {
				finalHash = w.local
			}
			trackingRef := fmt.Sprintf("refs/remotes/%s/%s", remoteName, strings.TrimPrefix(w.refName, "heads/"))
			_ = f.Repo.UpdateRef(trackingRef, finalHash)
		}
	}

	return remote.PushSucceeded(results), results, nil
}

func (f *Facade) resolvePushWants(localBranch, remoteBranch string, pushAllBranches, pushTags bool) ([]pushWant, error) {
	var wanted []pushWant

	if pushAllBranches {
		branches, err := f.Repo.ListBranches()
		if err != nil {
			return nil, wrapErr(ErrRepositoryMissing, "push", err)
		}
		for _, name := range branches {
			h, err := f.Repo.ResolveRef(name)
			if err != nil {
				return nil, wrapErr(ErrRefNotResolvable, "push", err)
			}
			wanted = append(wanted, pushWant{refName: "heads/" + name, local: h})
		}
	} else {
		if remoteBranch == "" {
			remoteBranch = localBranch
		}
		h, err := f.Repo.ResolveRef(localBranch)
		if err != nil {
			return nil, wrapErr(ErrRefNotResolvable, "push", err)
		}
		wanted = append(wanted, pushWant{refName: "heads/" + remoteBranch, local: h})
	}

	if pushTags {
		tags, err := f.Repo.ListTagsWithHashes()
		if err != nil {
			return nil, wrapErr(ErrRepositoryMissing, "push", err)
		}
		names := make([]string, 0, len(tags))
		for name := range tags {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			wanted = append(wanted, pushWant{refName: "tags/" + name, local: tags[name]})
		}
	}

	return wanted, nil
}
