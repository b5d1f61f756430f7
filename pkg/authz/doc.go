// Package authz implements project-scoped authorization.
//
// # Model
//
// Every project member holds exactly one Role (user, admin, owner). A Role is
// a fixed, compile-time bundle of Authorities, where an Authority is a single
// permitted action such as create_task or invite. Authority sets are never
// mutated at runtime.
//
// # Checking
//
// The Checker answers three questions against a MembershipSource (backed by
// the projects store, optionally fronted by a Redis role cache):
//
//	ProjectExists(project)            does the project exist at all?
//	RoleOf(project, user)             the member's exact role, if any
//	HasAuthority(project, user, auth) may the member perform this action?
//
// A user with no membership has no authorities, including see_project.
//
// # Guarding
//
// Guarded wraps a service operation with the existence and authority checks so
// enforcement lives in one auditable place instead of being repeated inside
// business logic. Each call site declares, statically, how to extract the
// project UUID from its command and which Authority the operation requires:
//
//	invite := authz.Guarded(guard, authz.CheckSpec[InviteCommand]{
//		ProjectUUID: func(cmd InviteCommand) uuid.UUID { return cmd.ProjectUUID },
//		Authority:   authz.AuthorityInvite,
//	}, svc.invite)
//
// Guard failures are sentinel errors (ErrProjectNotFound, ErrAccessDenied)
// that the HTTP layer maps to 404 and 403. The wrapped operation body never
// runs when a check fails.
package authz
