package types

// Meta keys and form field names shared by the store, the writer and the
// renderer. The stored layout must stay byte-compatible with existing data.
const (
	MetaEnableCustomAccess = "eam_enable_custom_access"
	MetaAllowedRoles       = "eam_allowed_roles"
	MetaAllowedUsers       = "eam_allowed_users"

	FieldNonce        = "eam_access_manager"
	FieldEnable       = "eam_enable_custom_access"
	FieldAllowedRoles = "eam_allowed_roles[]"
	FieldAllowedUsers = "eam_allowed_users[]"
	FieldAutosave     = "autosave"

	NonceAction = "eam_access_manager_action"
)

const RoleAdministrator = "administrator"

const ItemTypeRevision = "revision"

// AccessPolicy is the per-item allow-list. The zero value is the policy of an
// item with no stored metadata.
type AccessPolicy struct {
	Enabled      bool
	AllowedRoles []string
	// AllowedUsers is persisted and rendered but not consulted by the
	// evaluator.
	AllowedUsers []int64
}

type Item struct {
	ID       int64
	Type     string
	Status   string
	AuthorID int64
}

type User struct {
	ID    int64
	Login string
}
