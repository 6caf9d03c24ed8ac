package form

import "context"

const (
	MsgUsernameTaken = "Please use a different username."
	MsgEmailTaken    = "Please use a different email address."
)

// Availability answers store-backed uniqueness questions.
type Availability interface {
	UsernameTaken(ctx context.Context, username string) (bool, error)
	EmailTaken(ctx context.Context, email string) (bool, error)
}

type LoginForm struct {
	Username   string `form:"username"`
	Password   string `form:"password"`
	RememberMe bool   `form:"remember_me"`
}

func (f LoginForm) Values() Values {
	return Values{"username": f.Username, "password": f.Password}
}

func LoginSchema() *Schema {
	return NewSchema(
		Field{Name: "username", Rules: []Rule{Required()}},
		Field{Name: "password", Rules: []Rule{Required()}, Raw: true},
	)
}

type RegistrationForm struct {
	Username  string `form:"username"`
	Email     string `form:"email"`
	Password  string `form:"password"`
	Password2 string `form:"password2"`
}

func (f RegistrationForm) Values() Values {
	return Values{"username": f.Username, "email": f.Email, "password": f.Password, "password2": f.Password2}
}

func RegistrationSchema(av Availability) *Schema {
	return NewSchema(
		Field{Name: "username", Rules: []Rule{Required(), Unique(av.UsernameTaken, MsgUsernameTaken)}},
		Field{Name: "email", Rules: []Rule{Required(), Email(), Unique(av.EmailTaken, MsgEmailTaken)}},
		Field{Name: "password", Rules: []Rule{Required()}, Raw: true},
		Field{Name: "password2", Rules: []Rule{Required(), EqualTo("password")}, Raw: true},
	)
}

type EditProfileForm struct {
	Username string `form:"username"`
	AboutMe  string `form:"about_me"`
}

func (f EditProfileForm) Values() Values {
	return Values{"username": f.Username, "about_me": f.AboutMe}
}

// EditProfileSchema 保留原用户名时跳过唯一性检查
func EditProfileSchema(current string, av Availability) *Schema {
	unchangedOrFree := func(ctx context.Context, username string) (bool, error) {
		if username == current {
			return false, nil
		}
		return av.UsernameTaken(ctx, username)
	}
	return NewSchema(
		Field{Name: "username", Rules: []Rule{Required(), Unique(unchangedOrFree, MsgUsernameTaken)}},
		Field{Name: "about_me", Rules: []Rule{OptionalLength(10, 140)}},
	)
}

type PostForm struct {
	Post string `form:"post"`
}

func (f PostForm) Values() Values { return Values{"post": f.Post} }

func PostSchema() *Schema {
	return NewSchema(Field{Name: "post", Rules: []Rule{Required(), Length(10, 140)}})
}

type ResetPasswordRequestForm struct {
	Email string `form:"email"`
}

func (f ResetPasswordRequestForm) Values() Values { return Values{"email": f.Email} }

func ResetPasswordRequestSchema() *Schema {
	return NewSchema(Field{Name: "email", Rules: []Rule{Required(), Email()}})
}

type ResetPasswordForm struct {
	Password  string `form:"password"`
	Password2 string `form:"password2"`
}

func (f ResetPasswordForm) Values() Values {
	return Values{"password": f.Password, "password2": f.Password2}
}

func ResetPasswordSchema() *Schema {
	return NewSchema(
		Field{Name: "password", Rules: []Rule{Required()}, Raw: true},
		Field{Name: "password2", Rules: []Rule{EqualTo("password")}, Raw: true},
	)
}
