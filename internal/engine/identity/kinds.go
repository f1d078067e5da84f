package identity

// Kind is the closed set of recognized secret/identifier keys. Input kinds
// carry identifier values extracted from payloads and staged for hashing;
// operational kinds are provider-side secrets checked for existence only.
type Kind string

const (
	KindEmail     Kind = "email"
	KindPhone     Kind = "phone"
	KindUsername  Kind = "username"
	KindUserID    Kind = "user_id"
	KindAccountID Kind = "account_id"
	KindTeamID    Kind = "team_id"

	KindAPIToken      Kind = "api_token"
	KindSigningSecret Kind = "signing_secret"
)

var inputKinds = map[Kind]bool{
	KindEmail:     true,
	KindPhone:     true,
	KindUsername:  true,
	KindUserID:    true,
	KindAccountID: true,
	KindTeamID:    true,
}

var operationalKinds = map[Kind]bool{
	KindAPIToken:      true,
	KindSigningSecret: true,
}

func (k Kind) Valid() bool {
	return inputKinds[k] || operationalKinds[k]
}

// IsInput reports whether the kind's value participates in the identifier
// hash. Validated once at definition creation, not per resolution.
func (k Kind) IsInput() bool {
	return inputKinds[k]
}
