package authz

const (
	RoleAdministrator = "administrator"
	RoleEditor        = "editor"
	RoleAuthor        = "author"
	RoleContributor   = "contributor"
	RoleAnonymous     = "anonymous"
)

// ActionGrant is the only casbin action: the subject holds the object
// capability.
const ActionGrant = "grant"

const DomainGlobal = "global"

// Primitive capabilities referenced by the default mapping rules.
const (
	CapEditPosts          = "edit_posts"
	CapEditOthersPosts    = "edit_others_posts"
	CapEditPublishedPosts = "edit_published_posts"
	CapEditPrivatePosts   = "edit_private_posts"
)
