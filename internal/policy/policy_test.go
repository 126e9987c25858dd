// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package policy

import (
	"errors"
	"testing"

	"github.com/olegiv/oblog-go/internal/model"
)

// Handlers pass posts and comments by value, so the value types must
// satisfy Owned, not just their pointers.
var (
	_ Owned = model.Post{}
	_ Owned = model.Comment{}
)

func adminUser() *model.User {
	return &model.User{ID: 1, Role: model.RoleAdmin}
}

func memberUser(id int64) *model.User {
	return &model.User{ID: id, Role: model.RoleMember}
}

func TestDecide_PostMutations(t *testing.T) {
	postActions := []Action{ActionCreatePost, ActionEditPost, ActionDeletePost}

	for _, action := range postActions {
		t.Run(string(action), func(t *testing.T) {
			// Admin is allowed
			d, err := Decide(adminUser(), action, nil)
			if err != nil {
				t.Fatalf("Decide: %v", err)
			}
			if !d.Allowed {
				t.Errorf("admin should be allowed to %s", action)
			}

			// Member is denied with admin_only
			d, err = Decide(memberUser(2), action, nil)
			if err != nil {
				t.Fatalf("Decide: %v", err)
			}
			if d.Allowed {
				t.Errorf("member should not be allowed to %s", action)
			}
			if d.Reason != ReasonAdminOnly {
				t.Errorf("Reason = %q, want %q", d.Reason, ReasonAdminOnly)
			}

			// Anonymous is denied with admin_only
			d, err = Decide(nil, action, nil)
			if err != nil {
				t.Fatalf("Decide: %v", err)
			}
			if d.Allowed || d.Reason != ReasonAdminOnly {
				t.Errorf("anonymous %s: Decision = %+v, want deny %q", action, d, ReasonAdminOnly)
			}
		})
	}
}

func TestDecide_CreateComment(t *testing.T) {
	// Any authenticated user may comment
	d, err := Decide(memberUser(2), ActionCreateComment, nil)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if !d.Allowed {
		t.Error("authenticated member should be allowed to comment")
	}

	d, err = Decide(adminUser(), ActionCreateComment, nil)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if !d.Allowed {
		t.Error("admin should be allowed to comment")
	}

	// Anonymous is denied with login_required
	d, err = Decide(nil, ActionCreateComment, nil)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if d.Allowed {
		t.Error("anonymous visitor should not be allowed to comment")
	}
	if d.Reason != ReasonLoginRequired {
		t.Errorf("Reason = %q, want %q", d.Reason, ReasonLoginRequired)
	}
}

func TestDecide_CommentOwnership(t *testing.T) {
	comment := &model.Comment{ID: 10, PostID: 1, AuthorID: 2}

	for _, action := range []Action{ActionEditComment, ActionDeleteComment} {
		t.Run(string(action), func(t *testing.T) {
			// Owner is allowed
			d, err := Decide(memberUser(2), action, comment)
			if err != nil {
				t.Fatalf("Decide: %v", err)
			}
			if !d.Allowed {
				t.Errorf("owner should be allowed to %s", action)
			}

			// Admin may moderate other users' comments
			d, err = Decide(adminUser(), action, comment)
			if err != nil {
				t.Fatalf("Decide: %v", err)
			}
			if !d.Allowed {
				t.Errorf("admin should be allowed to %s", action)
			}

			// A third user is denied with not_owner
			d, err = Decide(memberUser(3), action, comment)
			if err != nil {
				t.Fatalf("Decide: %v", err)
			}
			if d.Allowed {
				t.Errorf("non-owner should not be allowed to %s", action)
			}
			if d.Reason != ReasonNotOwner {
				t.Errorf("Reason = %q, want %q", d.Reason, ReasonNotOwner)
			}

			// Anonymous is denied with login_required
			d, err = Decide(nil, action, comment)
			if err != nil {
				t.Fatalf("Decide: %v", err)
			}
			if d.Allowed || d.Reason != ReasonLoginRequired {
				t.Errorf("anonymous %s: Decision = %+v, want deny %q", action, d, ReasonLoginRequired)
			}
		})
	}
}

func TestDecide_PublicReads(t *testing.T) {
	actors := map[string]*model.User{
		"anonymous": nil,
		"member":    memberUser(2),
		"admin":     adminUser(),
	}

	for _, action := range []Action{ActionViewPost, ActionViewComment} {
		for name, actor := range actors {
			d, err := Decide(actor, action, nil)
			if err != nil {
				t.Fatalf("Decide(%s, %s): %v", name, action, err)
			}
			if !d.Allowed {
				t.Errorf("%s should be allowed to %s", name, action)
			}
		}
	}
}

func TestDecide_InvalidRequest(t *testing.T) {
	// Unknown action
	_, err := Decide(adminUser(), Action("publish_newsletter"), nil)
	if !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("unknown action: err = %v, want ErrInvalidRequest", err)
	}

	// Missing resource for an ownership check
	_, err = Decide(memberUser(2), ActionDeleteComment, nil)
	if !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("nil resource: err = %v, want ErrInvalidRequest", err)
	}
}

// Scenario from the product rules: A registers first and becomes admin,
// B is a regular member, C is a third user.
func TestDecide_Scenario(t *testing.T) {
	a := &model.User{ID: 1, Role: model.RoleAdmin}
	b := &model.User{ID: 2, Role: model.RoleMember}
	c := &model.User{ID: 3, Role: model.RoleMember}

	// B attempts to create a post
	d, err := Decide(b, ActionCreatePost, nil)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if d.Allowed || d.Reason != ReasonAdminOnly {
		t.Errorf("B create_post: Decision = %+v, want deny %q", d, ReasonAdminOnly)
	}

	// A creates the post
	d, err = Decide(a, ActionCreatePost, nil)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if !d.Allowed {
		t.Error("A (admin) should be allowed to create a post")
	}

	// B comments and edits their own comment
	bComment := &model.Comment{ID: 1, PostID: 1, AuthorID: b.ID}
	d, _ = Decide(b, ActionCreateComment, nil)
	if !d.Allowed {
		t.Error("B should be allowed to comment")
	}
	d, _ = Decide(b, ActionEditComment, bComment)
	if !d.Allowed {
		t.Error("B should be allowed to edit their own comment")
	}

	// C attempts to edit B's comment
	d, _ = Decide(c, ActionEditComment, bComment)
	if d.Allowed || d.Reason != ReasonNotOwner {
		t.Errorf("C edit B's comment: Decision = %+v, want deny %q", d, ReasonNotOwner)
	}

	// The admin may moderate it
	d, _ = Decide(a, ActionDeleteComment, bComment)
	if !d.Allowed {
		t.Error("admin should be allowed to delete B's comment")
	}
}
