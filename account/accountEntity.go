package account

import "github.com/fundwit/go-commons/types"

type User struct {
	ID     types.ID `json:"id" gorm:"primary_key;auto_increment:false"`
	Name   string   `json:"name" gorm:"unique_index"`
	Secret string   `json:"secret"`

	Nickname string `json:"nickname"`
	Email    string `json:"email"`
}

type UserInfo struct {
	ID       types.ID `json:"id"`
	Name     string   `json:"name"`
	Nickname string   `json:"nickname"`
	Email    string   `json:"email"`

	Roles []string `json:"roles" gorm:"-"`
}

// UserRoleBinding stores the free form role names handed to the identity provider.
type UserRoleBinding struct {
	ID types.ID `json:"id" gorm:"primary_key;auto_increment:false"`

	UserID types.ID `json:"userId" gorm:"unique_index:uni_user_role"`
	Role   string   `json:"role" gorm:"unique_index:uni_user_role"`
}

type BasicAuthUpdating struct {
	OriginalSecret string `json:"originalSecret"`
	NewSecret      string `json:"newSecret" binding:"required,gte=6,lte=32"`
}

type UserCreation struct {
	Name     string   `json:"name" binding:"required,lte=32"`
	Secret   string   `json:"secret" binding:"required,gte=6,lte=32"`
	Nickname string   `json:"nickname" binding:"omitempty,gte=1,lte=32"`
	Email    string   `json:"email" binding:"omitempty,email"`
	Roles    []string `json:"roles" binding:"dive,required,lte=64"`
}

type UserUpdation struct {
	Nickname string `json:"nickname" binding:"required,lte=32"`
	Email    string `json:"email" binding:"omitempty,email"`
}

type RolesAssignment struct {
	Roles []string `json:"roles" binding:"dive,required,lte=64"`
}

func (u User) DisplayName() string {
	if u.Nickname != "" {
		return u.Nickname
	} else {
		return u.Name
	}
}

func (u UserInfo) DisplayName() string {
	if u.Nickname != "" {
		return u.Nickname
	} else {
		return u.Name
	}
}
