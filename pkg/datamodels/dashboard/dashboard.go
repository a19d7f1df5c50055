package dashboard

const (
	//UsersCollection holds the profile of every user
	UsersCollection string = "users"
	//NomineesCollection holds the people a user has nominated
	NomineesCollection string = "nominees"
	//AccessCategoriesCollection holds what each nominee is allowed to access
	AccessCategoriesCollection string = "access_categories"
	//AvatarsBucket stores profile pictures
	AvatarsBucket string = "avatars"
)

const (
	//UserForeignKey is the field of a nominee that references its user
	UserForeignKey string = "user_id"
	//NomineeForeignKey is the field of an access category that references its nominee
	NomineeForeignKey string = "nominee_id"
)

type User struct {
	ID        string `json:"id"`
	FullName  string `json:"full_name,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

type Nominee struct {
	ID               string           `json:"id,omitempty"`
	UserID           string           `json:"user_id"`
	Name             string           `json:"name"`
	Email            string           `json:"email,omitempty"`
	Relationship     string           `json:"relationship,omitempty"`
	AccessCategories []AccessCategory `json:"access_categories,omitempty"`
}

type AccessCategory struct {
	ID        string `json:"id,omitempty"`
	NomineeID string `json:"nominee_id"`
	Category  string `json:"category"`
}

// Overview is everything the dashboard of a single user shows.
type Overview struct {
	User     User      `json:"user"`
	Nominees []Nominee `json:"nominees"`
}

// Schema creates the dashboard tables in an empty sql database.
const Schema string = `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		full_name TEXT,
		email TEXT,
		phone TEXT,
		avatar_url TEXT
	);

	CREATE TABLE IF NOT EXISTS nominees (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		email TEXT,
		relationship TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_nominees_user_id ON nominees(user_id);

	CREATE TABLE IF NOT EXISTS access_categories (
		id TEXT PRIMARY KEY,
		nominee_id TEXT NOT NULL REFERENCES nominees(id) ON DELETE CASCADE,
		category TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_access_categories_nominee_id ON access_categories(nominee_id);`
