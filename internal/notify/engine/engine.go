// Package engine holds the notification decision rules. The engine is pure:
// it reads nothing but its inputs and configuration, performs no I/O, and
// returns instructions for the caller to execute against collaborators.
package engine

import (
	id "beacon/pkg/domain"

	"beacon/internal/notify/models"
)

// Config is the engine's injected policy. Both sets were global constants in
// the original system; keeping them here means no hidden globals.
type Config struct {
	// TrackedBundles is the allow-list of content bundles that produce
	// notifications. Comments are tracked only when their parent content
	// entity's bundle is listed here.
	TrackedBundles []string
	// PrivilegedRoles receive new-user registration notifications.
	PrivilegedRoles []string
}

// Engine decides, per lifecycle event, whether a notification is warranted.
type Engine struct {
	tracked         map[string]struct{}
	privilegedRoles []string
}

func New(cfg Config) *Engine {
	tracked := make(map[string]struct{}, len(cfg.TrackedBundles))
	for _, b := range cfg.TrackedBundles {
		tracked[b] = struct{}{}
	}
	roles := make([]string, len(cfg.PrivilegedRoles))
	copy(roles, cfg.PrivilegedRoles)
	return &Engine{tracked: tracked, privilegedRoles: roles}
}

// MirrorSync instructs the caller to update the published flag on every
// stored message whose subject matches SubjectID.
type MirrorSync struct {
	SubjectID id.EntityID
	Published bool
}

// Decision is the engine's verdict for one lifecycle event. A zero Decision
// means: nothing to announce, no side effects.
type Decision struct {
	// Event is the notification to persist and deliver, nil when suppressed.
	Event *models.NotificationEvent
	// SubscribeAll asks the caller to flag every active user as a subscriber
	// of the new content entity.
	SubscribeAll bool
	// Mirror asks the caller to re-sync stored message publish flags.
	Mirror *MirrorSync
}

// TrackedBundle implements the eligibility filter. Users are always tracked;
// content is tracked by bundle allow-list; comments defer to their parent
// content entity, so callers pass the parent's type and bundle.
func (e *Engine) TrackedBundle(entityType models.EntityType, bundle string) bool {
	if entityType == models.EntityUser {
		return true
	}
	_, ok := e.tracked[bundle]
	return ok
}

// ContentCreated handles a brand-new content entity. Tracked creations always
// emit, and always request the auto-subscribe fan-out.
func (e *Engine) ContentCreated(snap models.ContentSnapshot) Decision {
	if !e.TrackedBundle(models.EntityContent, snap.Bundle) {
		return Decision{}
	}

	template := models.TemplateCreateContent
	if snap.Published {
		template = models.TemplatePublishContent
	}

	return Decision{
		Event: &models.NotificationEvent{
			Template:           template,
			SubjectEntityID:    snap.EntityID,
			SubjectEntityType:  models.EntityContent,
			OwnerID:            snap.OwnerID,
			Published:          snap.Published,
			Scope:              models.ScopeAllSubscribers,
			SubscriberSourceID: snap.EntityID,
		},
		SubscribeAll: true,
	}
}

// ContentUpdated classifies a revision transition. The rules, in order:
//
//  1. absent previous snapshot means creation; delegate.
//  2. a publish flip to true always announces, even when the host skipped
//     creating a real new revision.
//  3. otherwise announce an update only when this language variant actually
//     changed and got a new revision id.
//  4. everything else is suppressed: administrative saves must not spam
//     subscribers.
func (e *Engine) ContentUpdated(tr models.RevisionTransition) (Decision, error) {
	if err := tr.Validate(); err != nil {
		return Decision{}, err
	}

	if tr.Previous == nil {
		return e.ContentCreated(tr.Current), nil
	}

	if !e.TrackedBundle(models.EntityContent, tr.Current.Bundle) {
		return Decision{}, nil
	}

	decision := Decision{Mirror: e.PublishStatusSync(tr.Previous, tr.Current)}

	newlyPublished := tr.Current.Published && !tr.Previous.Published

	// When the current translation was untouched by this revision, the host
	// may not have created a genuine new revision at all. Collapse the pair
	// so diff display points at one revision, and treat the save as
	// content-unchanged.
	originalRev := tr.Previous.RevisionID
	newRev := tr.Current.RevisionID
	if !tr.Current.TranslationAffected {
		originalRev = tr.Current.RevisionID
		newRev = tr.Current.RevisionID
	}
	isNewRevision := tr.Current.TranslationAffected && originalRev != newRev

	var template models.Template
	switch {
	case newlyPublished:
		template = models.TemplatePublishContent
	case isNewRevision:
		template = models.TemplateUpdateContent
	default:
		// Revision exists but nothing displayable changed and publish state
		// did not flip to published.
		return decision, nil
	}

	decision.Event = &models.NotificationEvent{
		Template:           template,
		SubjectEntityID:    tr.Current.EntityID,
		SubjectEntityType:  models.EntityContent,
		OwnerID:            tr.Current.OwnerID,
		Published:          tr.Current.Published,
		OriginalRevisionID: originalRev,
		NewRevisionID:      newRev,
		Scope:              models.ScopeAllSubscribers,
		SubscriberSourceID: tr.Current.EntityID,
	}
	return decision, nil
}

// CommentCreated emits whenever the parent content entity is tracked.
// Comments have no update-notification path.
func (e *Engine) CommentCreated(comment, parent models.ContentSnapshot) Decision {
	if parent.EntityType != models.EntityContent {
		return Decision{}
	}
	if !e.TrackedBundle(models.EntityContent, parent.Bundle) {
		return Decision{}
	}

	return Decision{
		Event: &models.NotificationEvent{
			Template:           models.TemplateCreateComment,
			SubjectEntityID:    comment.EntityID,
			SubjectEntityType:  models.EntityComment,
			OwnerID:            comment.OwnerID,
			Published:          comment.Published,
			Scope:              models.ScopeAllSubscribers,
			SubscriberSourceID: parent.EntityID,
		},
	}
}

// UserRegistered always emits. New-user events go to holders of the
// privileged roles, not the general subscriber pool.
func (e *Engine) UserRegistered(user models.ContentSnapshot) Decision {
	roles := make([]string, len(e.privilegedRoles))
	copy(roles, e.privilegedRoles)

	return Decision{
		Event: &models.NotificationEvent{
			Template:          models.TemplateRegisterUser,
			SubjectEntityID:   user.EntityID,
			SubjectEntityType: models.EntityUser,
			OwnerID:           user.OwnerID,
			Published:         user.Published,
			Scope:             models.ScopeCustomRecipients,
			RecipientRoles:    roles,
		},
	}
}

// PublishStatusSync returns a mirror-sync instruction when the subject's
// publish status changed, nil otherwise. Pure and idempotent: the same
// inputs always yield the same instruction.
func (e *Engine) PublishStatusSync(previous *models.ContentSnapshot, current models.ContentSnapshot) *MirrorSync {
	if previous == nil || previous.Published == current.Published {
		return nil
	}
	return &MirrorSync{SubjectID: current.EntityID, Published: current.Published}
}
