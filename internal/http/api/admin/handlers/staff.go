package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	dbpkg "github.com/martabak-juara/loyalty-club/internal/db"
	"github.com/martabak-juara/loyalty-club/internal/http/api/admin/permissions"
	"github.com/martabak-juara/loyalty-club/internal/models"
	"github.com/martabak-juara/loyalty-club/internal/security"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// minStaffPasswordLength is the shortest password accepted for back-office staff.
const minStaffPasswordLength = 8

var errShortStaffPassword = errors.New("password must be at least 8 characters")

// StaffHandler manages the owner and cashier accounts that sign in to the back office.
type StaffHandler struct {
	db *gorm.DB
}

// NewStaffHandler constructs a StaffHandler.
func NewStaffHandler(db *gorm.DB) *StaffHandler {
	return &StaffHandler{db: db}
}

type staffCreateRequest struct {
	Username     string   `json:"username"`
	Password     string   `json:"password"`
	Permissions  []string `json:"permissions"`
	IsSuperAdmin bool     `json:"is_super_admin"`
}

// Create adds a staff account. Cashiers get only the permissions listed.
func (h *StaffHandler) Create(c *gin.Context) {
	var body staffCreateRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	username := strings.TrimSpace(body.Username)
	if username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing username"})
		return
	}
	hash, errPassword := hashStaffPassword(body.Password)
	if errPassword != nil {
		h.passwordError(c, errPassword)
		return
	}
	grants, okGrants := grantColumn(c, body.Permissions)
	if !okGrants {
		return
	}

	now := time.Now().UTC()
	staff := models.Admin{
		Username:     username,
		Password:     hash,
		Active:       true,
		IsSuperAdmin: body.IsSuperAdmin,
		Permissions:  grants,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&staff).Error; errCreate != nil {
		if errors.Is(errCreate, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, gin.H{"error": "username already exists"})
			return
		}
		log.WithError(errCreate).Error("admin: create staff account")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create admin failed"})
		return
	}
	log.WithFields(log.Fields{"staff_id": staff.ID, "username": staff.Username, "owner": staff.IsSuperAdmin}).Info("staff account created")
	c.JSON(http.StatusCreated, staffView(staff))
}

// List returns staff accounts newest first. It filters on ?username=, ?id= and ?active=.
func (h *StaffHandler) List(c *gin.Context) {
	q := h.db.WithContext(c.Request.Context()).Model(&models.Admin{})
	if term := strings.TrimSpace(c.Query("username")); term != "" {
		q = q.Where(dbpkg.CaseInsensitiveLikeExpr(h.db, "username"), dbpkg.ContainsPattern(h.db, term))
	}
	if id, errParse := strconv.ParseUint(strings.TrimSpace(c.Query("id")), 10, 64); errParse == nil {
		q = q.Where("id = ?", id)
	}
	if active, errParse := strconv.ParseBool(c.Query("active")); errParse == nil {
		q = q.Where("active = ?", active)
	}

	var rows []models.Admin
	if errFind := q.Order("created_at DESC").Find(&rows).Error; errFind != nil {
		log.WithError(errFind).Error("admin: list staff accounts")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list admins failed"})
		return
	}
	out := make([]gin.H, len(rows))
	for i := range rows {
		out[i] = staffView(rows[i])
	}
	c.JSON(http.StatusOK, gin.H{"admins": out})
}

// Get returns one staff account.
func (h *StaffHandler) Get(c *gin.Context) {
	staff, ok := h.load(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, staffView(staff))
}

type staffUpdateRequest struct {
	Username     *string   `json:"username"`
	Permissions  *[]string `json:"permissions"`
	IsSuperAdmin *bool     `json:"is_super_admin"`
}

// Update changes the username, permission set or owner flag. Omitted fields are kept.
func (h *StaffHandler) Update(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	var body staffUpdateRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	changes := map[string]any{}
	if body.Username != nil {
		username := strings.TrimSpace(*body.Username)
		if username == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "username cannot be empty"})
			return
		}
		changes["username"] = username
	}
	if body.Permissions != nil {
		grants, okGrants := grantColumn(c, *body.Permissions)
		if !okGrants {
			return
		}
		changes["permissions"] = grants
	}
	if body.IsSuperAdmin != nil {
		changes["is_super_admin"] = *body.IsSuperAdmin
	}
	h.patch(c, id, changes, "update failed")
}

// Delete removes a staff account. Staff cannot delete themselves.
func (h *StaffHandler) Delete(c *gin.Context) {
	id, ok := h.otherStaffID(c, "delete")
	if !ok {
		return
	}
	res := h.db.WithContext(c.Request.Context()).Delete(&models.Admin{}, id)
	if res.Error != nil {
		log.WithError(res.Error).WithField("staff_id", id).Error("admin: delete staff account")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

// Disable blocks sign-in for a staff account. Staff cannot disable themselves.
func (h *StaffHandler) Disable(c *gin.Context) {
	id, ok := h.otherStaffID(c, "disable")
	if !ok {
		return
	}
	h.patch(c, id, map[string]any{"active": false}, "disable failed")
}

// Enable lets a disabled staff account sign in again.
func (h *StaffHandler) Enable(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	h.patch(c, id, map[string]any{"active": true}, "enable failed")
}

type staffPasswordRequest struct {
	Password    string `json:"password"`
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// ChangePassword sets a new password. Sending old_password with new_password
// verifies the current one first; a bare password is an owner reset.
func (h *StaffHandler) ChangePassword(c *gin.Context) {
	var body staffPasswordRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	next := body.Password
	oldPassword, newPassword := strings.TrimSpace(body.OldPassword), strings.TrimSpace(body.NewPassword)
	if oldPassword != "" || newPassword != "" {
		if oldPassword == "" || newPassword == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing password"})
			return
		}
		staff, ok := h.load(c, "id", "password")
		if !ok {
			return
		}
		if !security.CheckPassword(staff.Password, oldPassword) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		next = newPassword
	}

	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}
	hash, errPassword := hashStaffPassword(next)
	if errPassword != nil {
		h.passwordError(c, errPassword)
		return
	}
	h.patch(c, id, map[string]any{"password": hash}, "change password failed")
}

// load reads the staff account named by :id, optionally limited to columns.
// It writes the 400, 404 or 500 response itself.
func (h *StaffHandler) load(c *gin.Context, columns ...string) (models.Admin, bool) {
	var staff models.Admin
	id, ok := parseUintParam(c, "id")
	if !ok {
		return staff, false
	}
	q := h.db.WithContext(c.Request.Context())
	if len(columns) > 0 {
		q = q.Select(columns)
	}
	if errFind := q.First(&staff, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return staff, false
		}
		log.WithError(errFind).WithField("staff_id", id).Error("admin: load staff account")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return staff, false
	}
	return staff, true
}

// patch applies changes to one staff row and answers {"ok": true}.
func (h *StaffHandler) patch(c *gin.Context, id uint64, changes map[string]any, failure string) {
	changes["updated_at"] = time.Now().UTC()
	res := h.db.WithContext(c.Request.Context()).Model(&models.Admin{}).Where("id = ?", id).Updates(changes)
	switch {
	case errors.Is(res.Error, gorm.ErrDuplicatedKey):
		c.JSON(http.StatusConflict, gin.H{"error": "username already exists"})
	case res.Error != nil:
		log.WithError(res.Error).WithField("staff_id", id).Error("admin: " + failure)
		c.JSON(http.StatusInternalServerError, gin.H{"error": failure})
	case res.RowsAffected == 0:
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	default:
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

// otherStaffID reads :id and refuses it when it names the signed-in admin.
func (h *StaffHandler) otherStaffID(c *gin.Context, verb string) (uint64, bool) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return 0, false
	}
	if self, _ := readAdminIDFromContext(c); self == id {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot " + verb + " yourself"})
		return 0, false
	}
	return id, true
}

func (h *StaffHandler) passwordError(c *gin.Context, err error) {
	if errors.Is(err, errShortStaffPassword) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	log.WithError(err).Error("admin: hash staff password")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "hash password failed"})
}

func hashStaffPassword(password string) (string, error) {
	password = strings.TrimSpace(password)
	if len(password) < minStaffPasswordLength {
		return "", errShortStaffPassword
	}
	return security.HashPassword(password)
}

// grantColumn validates permission keys and encodes them for the permissions column.
func grantColumn(c *gin.Context, keys []string) (datatypes.JSON, bool) {
	normalized := permissions.NormalizePermissions(keys)
	if errValidate := permissions.ValidatePermissions(normalized); errValidate != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid permissions"})
		return nil, false
	}
	raw, errMarshal := permissions.MarshalPermissions(normalized)
	if errMarshal != nil {
		log.WithError(errMarshal).Error("admin: encode permissions")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "marshal permissions failed"})
		return nil, false
	}
	return datatypes.JSON(raw), true
}

func staffView(staff models.Admin) gin.H {
	return gin.H{
		"id":             staff.ID,
		"username":       staff.Username,
		"active":         staff.Active,
		"is_super_admin": staff.IsSuperAdmin,
		"totp_enabled":   strings.TrimSpace(staff.TOTPSecret) != "",
		"permissions":    permissions.ParsePermissions(staff.Permissions),
		"created_at":     staff.CreatedAt,
		"updated_at":     staff.UpdatedAt,
	}
}
