package users

import (
	"errors"

	"gorm.io/gorm"

	"github.com/fernwiki/fern/models"
	"github.com/fernwiki/fern/utils"
)

var (
	// ErrNotFound indicates no user record exists for the username.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicateUser indicates the username is already taken.
	ErrDuplicateUser = errors.New("username already exists")
)

// Store manages user records keyed by username. Every mutation persists
// immediately; there is no buffering between the in-memory record and the
// database row.
type Store struct {
	db *gorm.DB
}

// NewStore creates a user store over the given database handle.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Get returns the user for username, or (nil, nil) when absent.
func (s *Store) Get(username string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// GetOrFail returns the user for username or ErrNotFound.
func (s *Store) GetOrFail(username string) (*models.User, error) {
	user, err := s.Get(username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotFound
	}
	return user, nil
}

// Create registers a new user with a bcrypt-hashed password. Fails with
// ErrDuplicateUser when the username is taken.
func (s *Store) Create(username, password string) (*models.User, error) {
	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:     username,
		PasswordHash: hash,
		Active:       true,
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var existing models.User
		if err := tx.Where("username = ?", username).First(&existing).Error; err == nil {
			return ErrDuplicateUser
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		// The unique index backstops concurrent creates that both pass the check.
		if err := tx.Create(user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateUser
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Delete removes the user record. Deleting an absent user fails with ErrNotFound.
func (s *Store) Delete(username string) error {
	res := s.db.Where("username = ?", username).Delete(&models.User{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateProfile persists the mutable profile fields in one upsert.
func (s *Store) UpdateProfile(user *models.User, fname, lname, email, phone string) error {
	user.FName, user.LName, user.Email, user.Phone = fname, lname, email, phone
	return s.db.Model(user).Updates(map[string]interface{}{
		"f_name": fname,
		"l_name": lname,
		"email":  email,
		"phone":  phone,
	}).Error
}

// UpdatePassword hashes and persists a new password.
func (s *Store) UpdatePassword(user *models.User, password string) error {
	hash, err := utils.HashPassword(password)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	return s.db.Model(user).Update("password_hash", hash).Error
}

// SetAuthenticated persists the authenticated status flag.
func (s *Store) SetAuthenticated(user *models.User, v bool) error {
	user.Authenticated = v
	return s.db.Model(user).Update("authenticated", v).Error
}

// SetActive persists the active status flag.
func (s *Store) SetActive(user *models.User, v bool) error {
	user.Active = v
	return s.db.Model(user).Update("active", v).Error
}

// Rename rekeys the user under a new username. The duplicate check and key
// update run in a single transaction, so a failure mid-way can never lose the
// record the way a delete-then-insert sequence could. Fails with
// ErrDuplicateUser when the new username is taken.
func (s *Store) Rename(user *models.User, newUsername string) error {
	if newUsername == user.Username {
		return nil
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var existing models.User
		if err := tx.Where("username = ?", newUsername).First(&existing).Error; err == nil {
			return ErrDuplicateUser
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := tx.Model(user).Update("username", newUsername).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateUser
			}
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}
	user.Username = newUsername
	return nil
}
