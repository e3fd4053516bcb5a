package sample

// DefaultFollowerSource is the source= identifier Heroku assigns to the follower database.
const DefaultFollowerSource = "HEROKU_POSTGRESQL_GRAY"

// Role is the data-source role of a sample.
type Role int

const (
	Unknown Role = iota
	Primary
	Follower
)

const (
	primaryMaxIOPS  = 12000
	followerMaxIOPS = 3000
)

func (r Role) String() string {
	switch r {
	case Primary:
		return "primary"
	case Follower:
		return "follower"
	default:
		return "unknown"
	}
}

// Title is the section heading used in reports.
func (r Role) Title() string {
	switch r {
	case Primary:
		return "Primary Database"
	case Follower:
		return "Follower Database"
	default:
		return "Unknown Database"
	}
}

// MaxIOPS is the provisioned IOPS capacity of the role.
func (r Role) MaxIOPS() int {
	switch r {
	case Primary:
		return primaryMaxIOPS
	case Follower:
		return followerMaxIOPS
	default:
		return 0
	}
}

// Classifier maps raw source identifiers to roles.
type Classifier struct {
	follower string
}

// NewClassifier returns a Classifier treating follower as the only Follower identifier.
// An empty follower falls back to DefaultFollowerSource.
func NewClassifier(follower string) Classifier {
	if follower == "" {
		follower = DefaultFollowerSource
	}
	return Classifier{follower: follower}
}

// Classify returns Unknown for an empty source, Follower for the configured
// follower identifier and Primary for everything else.
func (c Classifier) Classify(source string) Role {
	switch source {
	case "":
		return Unknown
	case c.follower:
		return Follower
	default:
		return Primary
	}
}
