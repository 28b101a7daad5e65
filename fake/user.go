package fake

import (
	"strconv"

	"github.com/pilosa/musiclake/fake/gen"
)

// User is a listener of the streaming service.
type User struct {
	ID        string
	FirstName string
	LastName  string
	Gender    string
	Level     string
	Location  string
	UserAgent string
	// Registration is the sign up time in epoch milliseconds.
	Registration float64
}

// UserGenerator generates fake Users.
type UserGenerator struct {
	g *gen.Generator
}

// NewUserGenerator initializes a new UserGenerator.
func NewUserGenerator(seed int64) *UserGenerator {
	return &UserGenerator{g: gen.NewGenerator(seed)}
}

// Users returns n users with ids "1" to n. About a quarter start on the paid
// level.
func (u *UserGenerator) Users(n int, registeredBy float64) []*User {
	users := make([]*User, n)
	for i := range users {
		gender := "F"
		first := u.g.Pick(femaleNames)
		if u.g.Chance(0.5) {
			gender = "M"
			first = u.g.Pick(maleNames)
		}
		level := "free"
		if u.g.Chance(0.25) {
			level = "paid"
		}
		users[i] = &User{
			ID:           strconv.Itoa(i + 1),
			FirstName:    first,
			LastName:     u.g.Pick(lastNames),
			Gender:       gender,
			Level:        level,
			Location:     u.g.Pick(metros),
			UserAgent:    u.g.Pick(userAgents),
			Registration: registeredBy - float64(u.g.Intn(90*24*3600))*1000,
		}
	}
	return users
}

var femaleNames = []string{"Sylvie", "Tegan", "Kate", "Chloe", "Lily", "Jacqueline", "Ava", "Layla", "Mohammad", "Rylan", "Aleena", "Jayden"}

var maleNames = []string{"Ryan", "Walter", "Jacob", "Kevin", "Jordan", "Cienna", "Lucas", "Wyatt", "Noah", "Theodore", "Aiden", "Ethan"}

var lastNames = []string{"Smith", "Frye", "Cruz", "Levine", "Harrell", "Lynch", "Klein", "Robinson", "Fuller", "Williams", "Cox", "Scott", "Garrison", "Bates"}

var metros = []string{
	"San Jose-Sunnyvale-Santa Clara, CA",
	"San Francisco-Oakland-Hayward, CA",
	"Portland-South Portland, ME",
	"Lansing-East Lansing, MI",
	"Waterloo-Cedar Falls, IA",
	"Atlanta-Sandy Springs-Roswell, GA",
	"Chicago-Naperville-Elgin, IL-IN-WI",
	"New York-Newark-Jersey City, NY-NJ-PA",
}

var userAgents = []string{
	`"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_9_4) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/36.0.1985.143 Safari/537.36"`,
	`"Mozilla/5.0 (Windows NT 6.1; WOW64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/35.0.1916.153 Safari/537.36"`,
	"Mozilla/5.0 (Windows NT 6.1; WOW64; rv:31.0) Gecko/20100101 Firefox/31.0",
	`"Mozilla/5.0 (iPhone; CPU iPhone OS 7_1_2 like Mac OS X) AppleWebKit/537.51.2 (KHTML, like Gecko) Version/7.0 Mobile/11D257 Safari/9537.53"`,
	"Mozilla/5.0 (X11; Linux x86_64; rv:31.0) Gecko/20100101 Firefox/31.0",
}
