package account

import (
	"context"
	"crypto/sha256"
	"docflow/authority"
	"docflow/bizerror"
	"docflow/idgen"
	"docflow/persistence"
	"docflow/session"
	"encoding/hex"
	"errors"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/sony/sonyflake"
)

var (
	userIdWorker    *sonyflake.Sonyflake
	bindingIdWorker *sonyflake.Sonyflake

	UpdateBasicAuthSecretFunc = UpdateBasicAuthSecret
	QueryUsersFunc            = QueryUsers
	CreateUserFunc            = CreateUser
	UpdateUserFunc            = UpdateUser
	AssignRolesFunc           = AssignRoles
	QueryAccountNamesFunc     = QueryAccountNames
)

func init() {
	userIdWorker = idgen.NewWorker()
	bindingIdWorker = idgen.NewWorker()
}

func HashSha256(raw string) string {
	h := sha256.New()
	h.Write([]byte(raw))
	sum := h.Sum(nil)
	return hex.EncodeToString(sum)
}

func UpdateBasicAuthSecret(u *BasicAuthUpdating, sec *session.Session) error {
	db := persistence.ActiveDataSourceManager.GormDB(sec.Ctx())
	user := User{}
	if err := db.Model(&User{}).Where(&User{ID: sec.Identity.ID, Secret: HashSha256(u.OriginalSecret)}).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return bizerror.ErrInvalidPassword
		} else {
			return err
		}
	}

	if err := db.Model(&User{}).Where(&User{ID: sec.Identity.ID, Secret: HashSha256(u.OriginalSecret)}).
		Update(&User{Secret: HashSha256(u.NewSecret)}).Error; err != nil {
		return err
	}

	return nil
}

func QueryUsers(sec *session.Session) (*[]UserInfo, error) {
	db := persistence.ActiveDataSourceManager.GormDB(sec.Ctx())
	var users []UserInfo
	if err := db.Model(&User{}).Order("name ASC").Scan(&users).Error; err != nil {
		return nil, err
	}
	if users == nil {
		users = []UserInfo{}
	}

	var bindings []UserRoleBinding
	if err := db.Model(&UserRoleBinding{}).Order("role ASC").Find(&bindings).Error; err != nil {
		return nil, err
	}
	roles := map[types.ID][]string{}
	for _, b := range bindings {
		roles[b.UserID] = append(roles[b.UserID], b.Role)
	}
	for i := range users {
		users[i].Roles = roles[users[i].ID]
		if users[i].Roles == nil {
			users[i].Roles = []string{}
		}
	}
	return &users, nil
}

func CreateUser(c *UserCreation, sec *session.Session) (*UserInfo, error) {
	if !authority.Active.IsAdmin(sec.Principal()) {
		return nil, bizerror.ErrForbidden
	}

	user := User{ID: idgen.NextID(userIdWorker), Name: c.Name, Nickname: c.Nickname, Email: c.Email, Secret: HashSha256(c.Secret)}
	roles := distinctRoles(c.Roles)
	err := persistence.ActiveDataSourceManager.GormDB(sec.Ctx()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		return saveRoleBindings(tx, user.ID, roles)
	})
	if err != nil {
		return nil, err
	}
	return &UserInfo{ID: user.ID, Name: user.Name, Nickname: user.Nickname, Email: user.Email, Roles: roles}, nil
}

func UpdateUser(userId types.ID, c *UserUpdation, sec *session.Session) error {
	if !authority.Active.IsAdmin(sec.Principal()) && userId != sec.Identity.ID {
		return bizerror.ErrForbidden
	}

	return persistence.ActiveDataSourceManager.GormDB(sec.Ctx()).Transaction(func(tx *gorm.DB) error {
		user := User{ID: userId}
		if err := tx.Where(&user).First(&user).Error; err != nil {
			return err
		}
		if err := tx.Model(&user).Updates(map[string]interface{}{"nickname": c.Nickname, "email": c.Email}).Error; err != nil {
			return err
		}
		return nil
	})
}

// AssignRoles replaces every role binding of the user.
func AssignRoles(userId types.ID, c *RolesAssignment, sec *session.Session) error {
	if !authority.Active.IsAdmin(sec.Principal()) {
		return bizerror.ErrForbidden
	}

	return persistence.ActiveDataSourceManager.GormDB(sec.Ctx()).Transaction(func(tx *gorm.DB) error {
		user := User{ID: userId}
		if err := tx.Where(&user).First(&user).Error; err != nil {
			return err
		}
		if err := tx.Delete(UserRoleBinding{}, "user_id = ?", userId).Error; err != nil {
			return err
		}
		return saveRoleBindings(tx, userId, distinctRoles(c.Roles))
	})
}

// QueryAccountNames resolves display names, ids without an account are absent from the result.
func QueryAccountNames(ctx context.Context, ids []types.ID) (map[types.ID]string, error) {
	if len(ids) == 0 {
		return map[types.ID]string{}, nil
	}
	db := persistence.ActiveDataSourceManager.GormDB(ctx)
	var records []UserInfo
	if err := db.Model(&User{}).Where("id IN (?)", ids).Scan(&records).Error; err != nil {
		return nil, err
	}
	result := map[types.ID]string{}
	for _, r := range records {
		result[r.ID] = r.DisplayName()
	}
	return result, nil
}

func saveRoleBindings(tx *gorm.DB, userId types.ID, roles []string) error {
	for _, role := range roles {
		if err := tx.Create(&UserRoleBinding{ID: idgen.NextID(bindingIdWorker), UserID: userId, Role: role}).Error; err != nil {
			return err
		}
	}
	return nil
}

// distinctRoles drops blank and case insensitive duplicated roles, keeping the first spelling.
func distinctRoles(roles []string) []string {
	r := []string{}
	seen := map[string]bool{}
	for _, role := range roles {
		key := authority.NormalizeRole(role)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		r = append(r, role)
	}
	return r
}
