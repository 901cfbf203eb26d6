package account

import (
	"context"
	"docflow/authority"
	"docflow/persistence"
	"errors"
	"os"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/sirupsen/logrus"
)

var (
	LoadPermFunc = loadPerms
)

func LoadPermFuncReset() {
	LoadPermFunc = loadPerms
}

// DefaultSecurityConfiguration makes sure the initial administrator exists and holds the admin role.
func DefaultSecurityConfiguration(ctx context.Context) error {
	adminRole := authority.Active.Table().AdminRole
	return persistence.ActiveDataSourceManager.GormDB(ctx).Transaction(func(tx *gorm.DB) error {
		admin := User{}
		err := tx.Model(&User{}).Where(&User{ID: 1}).First(&admin).Error
		if err != nil && errors.Is(err, gorm.ErrRecordNotFound) {
			initialAdminPassword := os.ExpandEnv("${INITIAL_ADMIN_PASSWORD}")
			if initialAdminPassword == "" {
				initialAdminPassword = "admin123"
				logrus.Warn("INITIAL_ADMIN_PASSWORD is not set, the default password is used for the admin account")
			}
			if err := tx.Save(&User{ID: 1, Name: "admin", Secret: HashSha256(initialAdminPassword)}).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}
		if err := tx.Save(&UserRoleBinding{ID: 1, UserID: 1, Role: adminRole}).Error; err != nil {
			return err
		}
		return nil
	})
}

func loadPerms(ctx context.Context, uid types.ID) authority.Permissions {
	var roles []string
	db := persistence.ActiveDataSourceManager.GormDB(ctx)
	if err := db.Model(&UserRoleBinding{}).Where(&UserRoleBinding{UserID: uid}).Order("role ASC").Pluck("role", &roles).Error; err != nil {
		panic(err)
	}
	if roles == nil {
		roles = []string{}
	}
	return roles
}
