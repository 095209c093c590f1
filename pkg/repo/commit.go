package repo

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/odvcencio/hull/pkg/object"
)

// CommitSigner signs canonical commit payload bytes and returns an encoded
// signature string to be persisted in CommitObj.Signature.
type CommitSigner func(payload []byte) (string, error)

// ErrCommitFailed wraps a failure to advance HEAD to a newly written commit,
// notably when the ref update loses a reflog lock race.
type ErrCommitFailed struct {
	Ref string
	Err error
}

func (e *ErrCommitFailed) Error() string {
	return fmt.Sprintf("commit failed: update %s: %v", e.Ref, e.Err)
}

func (e *ErrCommitFailed) Unwrap() error { return e.Err }

// Commit creates a new commit from the current staging area, using author
// as both the author and committer identity. author is either a bare name
// or "Name <email>"; the current time and local offset are used for When.
func (r *Repo) Commit(message, author string) (object.Hash, error) {
	id := parseIdentityString(author)
	h, _, err := r.CommitWithIdentities(message, &id, nil, nil)
	return h, err
}

// CommitWithSigner creates a new commit and signs it when signer is provided.
func (r *Repo) CommitWithSigner(message, author string, signer CommitSigner) (object.Hash, error) {
	id := parseIdentityString(author)
	h, _, err := r.CommitWithIdentities(message, &id, nil, signer)
	return h, err
}

// CommitWithIdentities implements the PorcelainFaçade commit algorithm:
// resolve HEAD to a parent (absent for the first commit), build the staged
// tree, write a CommitObj with the given author/committer, update HEAD, and
// append a reflog entry. When committer is nil it defaults to author; when
// author is nil a generic fallback identity is used (no configured
// identity is read). Returns the new commit hash and whether any existing
// commit was amended (always false here; amend is driven by the caller
// supplying the same tree/message convention via the CLI).
func (r *Repo) CommitWithIdentities(message string, author, committer *object.Identity, signer CommitSigner) (object.Hash, bool, error) {
	stg, err := r.ReadStaging()
	if err != nil {
		return "", false, fmt.Errorf("commit: %w", err)
	}
	if len(stg.Entries) == 0 {
		return "", false, fmt.Errorf("commit: nothing staged")
	}

	treeHash, err := r.BuildTree(stg)
	if err != nil {
		return "", false, fmt.Errorf("commit: %w", err)
	}

	var parents []object.Hash
	parentHash, err := r.ResolveRef("HEAD")
	if err == nil && parentHash != "" {
		parents = append(parents, parentHash)
	}

	now := time.Now()
	authorID := identityOrDefault(author, now)
	committerID := authorID
	if committer != nil {
		committerID = *committer
	}

	commitObj := &object.CommitObj{
		TreeHash:  treeHash,
		Parents:   parents,
		Author:    authorID,
		Committer: committerID,
		Message:   message,
	}
	if signer != nil {
		payload := object.CommitSigningPayload(commitObj)
		signature, err := signer(payload)
		if err != nil {
			return "", false, fmt.Errorf("commit: sign commit: %w", err)
		}
		commitObj.Signature = signature
	}

	commitHash, err := r.Store.WriteCommit(commitObj)
	if err != nil {
		return "", false, fmt.Errorf("commit: write commit: %w", err)
	}

	head, err := r.Head()
	if err != nil {
		return "", false, fmt.Errorf("commit: read HEAD: %w", err)
	}

	var updateErr error
	if strings.HasPrefix(head, "refs/") {
		if parentHash == "" {
			updateErr = r.UpdateRefCAS(head, commitHash)
		} else {
			updateErr = r.UpdateRefCAS(head, commitHash, parentHash)
		}
	} else {
		updateErr = r.UpdateRefCAS("HEAD", commitHash, object.Hash(strings.TrimSpace(head)))
		head = "HEAD"
	}
	if updateErr != nil {
		return "", false, &ErrCommitFailed{Ref: head, Err: updateErr}
	}

	reflogMsg := "\tcommit: " + firstLine(message)
	if err := r.appendReflog(head, parentHash, commitHash, reflogMsg); err != nil {
		return "", false, &ErrCommitFailed{Ref: head, Err: err}
	}

	r.invalidateStatusCache()

	return commitHash, false, nil
}

func firstLine(message string) string {
	if idx := strings.IndexByte(message, '\n'); idx >= 0 {
		return message[:idx]
	}
	return message
}

// parseIdentityString parses "Name <email>" into an Identity, stamped with
// the current time. A bare name with no "<...>" gets an empty email.
func parseIdentityString(s string) object.Identity {
	return identityOrDefault(&object.Identity{Name: s}, time.Now())
}

func identityOrDefault(id *object.Identity, now time.Time) object.Identity {
	name, email := "", ""
	if id != nil {
		name, email = id.Name, id.Email
	}
	if open := strings.LastIndex(name, "<"); open >= 0 {
		if close := strings.LastIndex(name, ">"); close > open {
			email = name[open+1 : close]
			name = strings.TrimSpace(name[:open])
		}
	}
	if name == "" {
		name = "unknown"
	}
	_, offset := now.Zone()
	return object.Identity{
		Name:            name,
		Email:           email,
		When:            now.Unix(),
		TZOffsetMinutes: offset / 60,
	}
}

// Log walks the commit history starting from the given hash, following
// first-parent links, returning up to limit commits in reverse-chronological
// order (newest first).
func (r *Repo) Log(start object.Hash, limit int) ([]*object.CommitObj, error) {
	var commits []*object.CommitObj
	current := start

	for len(commits) < limit {
		c, err := r.Store.ReadCommit(current)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				break
			}
			return nil, fmt.Errorf("log: read commit %s: %w", current, err)
		}
		commits = append(commits, c)

		if len(c.Parents) == 0 {
			break
		}
		current = c.Parents[0]
	}

	return commits, nil
}
