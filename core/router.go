package core

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// APIDeps bundles the collaborators the router wires together.
type APIDeps struct {
	Auth         AuthService
	Tokens       *TokenService
	Users        UserRepository
	Customers    CustomerRepository
	Partnerships PartnershipRepository
	Financials   FinancialRepository
	Activity     ActivityRepository
	Recorder     *ActivityRecorder
	Metrics      *MetricsService
}

// NewRouter constructs the Gin engine with routes wired.
func NewRouter(cfg Config, deps APIDeps) *gin.Engine {
	startedAt := time.Now()
	r := gin.Default()

	r.Use(CORSMiddleware(cfg))

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Admin Dashboard API", "status": "running"})
	})

	api := r.Group("/api")

	api.GET("/health", func(c *gin.Context) {
		count, err := deps.Users.Count(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusOK, gin.H{
				"status":   "unhealthy",
				"database": "error",
				"error":    err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":     "healthy",
			"database":   "connected",
			"user_count": count,
		})
	})

	api.POST("/login", func(c *gin.Context) {
		// The dashboard submits the email under the form field "username".
		email := c.PostForm("username")
		password := c.PostForm("password")

		user, err := deps.Auth.Authenticate(c.Request.Context(), email, password)
		if err != nil {
			deps.Recorder.Record(c.Request.Context(), ActivityEvent{
				Event:   EventLoginFailure,
				Subject: email,
				Detail:  map[string]any{"reason": err.Error()},
			})
			if errors.Is(err, ErrUserInactive) {
				respondDetail(c, http.StatusForbidden, "User account is inactive")
				return
			}
			if errors.Is(err, ErrInvalidCredentials) {
				c.Header("WWW-Authenticate", "Bearer")
				respondDetail(c, http.StatusUnauthorized, "Incorrect email or password")
				return
			}
			respondDetail(c, http.StatusInternalServerError, "An error occurred during login")
			return
		}

		token, err := deps.Tokens.Generate(user.Email)
		if err != nil {
			log.Printf("token generation failed for %s: %v", user.Email, err)
			respondDetail(c, http.StatusInternalServerError, "An error occurred during login")
			return
		}

		deps.Recorder.Record(c.Request.Context(), ActivityEvent{
			Event: EventLoginSuccess,
			Actor: user.Email,
		})

		c.JSON(http.StatusOK, gin.H{
			"access_token": token,
			"token_type":   "bearer",
			"user":         user,
		})
	})

	authed := api.Group("")
	authed.Use(AuthMiddleware(deps.Tokens, deps.Users))

	authed.GET("/me", func(c *gin.Context) {
		u, _ := CurrentUser(c)
		c.JSON(http.StatusOK, u)
	})

	customers := authed.Group("", RequirePermission(PermManageCustomers))
	{
		customers.POST("/customers", func(c *gin.Context) {
			var payload CustomerCreate
			if err := c.ShouldBindJSON(&payload); err != nil {
				respondDetail(c, http.StatusBadRequest, "invalid json")
				return
			}
			if err := payload.Validate(); err != nil {
				respondDetail(c, http.StatusBadRequest, err.Error())
				return
			}

			ctx := c.Request.Context()
			if payload.PartnershipCode != "" {
				if _, err := deps.Partnerships.FindActive(ctx, payload.PartnershipCode); err != nil {
					if errors.Is(err, ErrCodeNotFound) {
						respondDetail(c, http.StatusBadRequest, "Invalid or inactive partnership code")
						return
					}
					respondDetail(c, http.StatusInternalServerError, "failed to check partnership code")
					return
				}
			}

			total := payload.Total()
			customer, err := deps.Customers.Create(ctx, payload, total > 0)
			if err != nil {
				respondDetail(c, http.StatusInternalServerError, "failed to create customer")
				return
			}

			if total > 0 {
				if err := deps.Financials.Record(ctx, customer.ID, total); err != nil {
					log.Printf("failed to record transaction for customer %d: %v", customer.ID, err)
				}
			}

			actor, _ := CurrentUser(c)
			deps.Recorder.Record(ctx, ActivityEvent{
				Event:   EventCustomerCreated,
				Actor:   actor.Email,
				Subject: strconv.FormatInt(customer.ID, 10),
				Detail:  map[string]any{"full_name": customer.FullName, "total": total},
			})

			c.JSON(http.StatusOK, customer)
		})

		customers.GET("/customers", func(c *gin.Context) {
			includeDeleted := c.Query("include_deleted") == "true"
			items, err := deps.Customers.List(c.Request.Context(), includeDeleted)
			if err != nil {
				respondDetail(c, http.StatusInternalServerError, "failed to list customers")
				return
			}
			c.JSON(http.StatusOK, items)
		})

		customers.DELETE("/customers/:id", func(c *gin.Context) {
			id, err := strconv.ParseInt(c.Param("id"), 10, 64)
			if err != nil {
				respondDetail(c, http.StatusBadRequest, "invalid customer id")
				return
			}

			ctx := c.Request.Context()
			if err := deps.Customers.SoftDelete(ctx, id); err != nil {
				if errors.Is(err, ErrCustomerNotFound) {
					respondDetail(c, http.StatusNotFound, "Customer not found")
					return
				}
				respondDetail(c, http.StatusInternalServerError, "failed to delete customer")
				return
			}

			actor, _ := CurrentUser(c)
			deps.Recorder.Record(ctx, ActivityEvent{
				Event:   EventCustomerDeleted,
				Actor:   actor.Email,
				Subject: strconv.FormatInt(id, 10),
			})

			c.JSON(http.StatusOK, gin.H{"message": "Customer marked as deleted (payment not received)"})
		})
	}

	authed.GET("/financials", RequirePermission(PermViewFinancials), func(c *gin.Context) {
		ctx := c.Request.Context()
		transactions, err := deps.Financials.ListActive(ctx)
		if err != nil {
			respondDetail(c, http.StatusInternalServerError, "failed to load transactions")
			return
		}
		details, err := deps.Financials.ListActiveDetails(ctx)
		if err != nil {
			respondDetail(c, http.StatusInternalServerError, "failed to load transaction details")
			return
		}
		c.JSON(http.StatusOK, BuildFinancialReport(transactions, details, time.Now()))
	})

	codes := authed.Group("", RequirePermission(PermManagePartnershipCodes))
	{
		codes.POST("/partnership-codes", func(c *gin.Context) {
			var payload struct {
				Code string `json:"code"`
			}
			if err := c.ShouldBindJSON(&payload); err != nil || payload.Code == "" {
				respondDetail(c, http.StatusBadRequest, "invalid json")
				return
			}

			ctx := c.Request.Context()
			code, err := deps.Partnerships.Create(ctx, payload.Code)
			if err != nil {
				if errors.Is(err, ErrCodeExists) {
					respondDetail(c, http.StatusBadRequest, "Partnership code already exists")
					return
				}
				respondDetail(c, http.StatusInternalServerError, "failed to create partnership code")
				return
			}

			actor, _ := CurrentUser(c)
			deps.Recorder.Record(ctx, ActivityEvent{
				Event:   EventCodeCreated,
				Actor:   actor.Email,
				Subject: code.Code,
			})

			c.JSON(http.StatusOK, code)
		})

		codes.GET("/partnership-codes", func(c *gin.Context) {
			items, err := deps.Partnerships.List(c.Request.Context())
			if err != nil {
				respondDetail(c, http.StatusInternalServerError, "failed to list partnership codes")
				return
			}
			c.JSON(http.StatusOK, items)
		})

		codes.DELETE("/partnership-codes/:id", func(c *gin.Context) {
			id, err := strconv.ParseInt(c.Param("id"), 10, 64)
			if err != nil {
				respondDetail(c, http.StatusBadRequest, "invalid code id")
				return
			}

			ctx := c.Request.Context()
			if err := deps.Partnerships.Deactivate(ctx, id); err != nil {
				if errors.Is(err, ErrCodeNotFound) {
					respondDetail(c, http.StatusNotFound, "Partnership code not found")
					return
				}
				respondDetail(c, http.StatusInternalServerError, "failed to deactivate partnership code")
				return
			}

			actor, _ := CurrentUser(c)
			deps.Recorder.Record(ctx, ActivityEvent{
				Event:   EventCodeDeactivated,
				Actor:   actor.Email,
				Subject: strconv.FormatInt(id, 10),
			})

			c.JSON(http.StatusOK, gin.H{"message": "Partnership code deactivated"})
		})
	}

	authed.GET("/partnership-stats", RequirePermission(PermViewPartnershipStats), func(c *gin.Context) {
		ctx := c.Request.Context()
		codes, err := deps.Partnerships.List(ctx)
		if err != nil {
			respondDetail(c, http.StatusInternalServerError, "failed to list partnership codes")
			return
		}

		customersByCode := make(map[string][]Customer, len(codes))
		for _, code := range codes {
			customers, err := deps.Customers.ListActiveByPartnershipCode(ctx, code.Code)
			if err != nil {
				respondDetail(c, http.StatusInternalServerError, "failed to load partnership customers")
				return
			}
			customersByCode[code.Code] = customers
		}

		c.JSON(http.StatusOK, BuildPartnershipStats(codes, customersByCode))
	})

	access := authed.Group("", RequirePermission(PermManageAccess))
	{
		access.POST("/users", func(c *gin.Context) {
			var payload UserCreate
			if err := c.ShouldBindJSON(&payload); err != nil {
				respondDetail(c, http.StatusBadRequest, "invalid json")
				return
			}
			if err := payload.Validate(); err != nil {
				respondDetail(c, http.StatusBadRequest, err.Error())
				return
			}

			ctx := c.Request.Context()
			if _, err := deps.Users.FindByEmail(ctx, payload.Email); err == nil {
				respondDetail(c, http.StatusBadRequest, "User with this email already exists")
				return
			} else if !errors.Is(err, ErrUserNotFound) {
				respondDetail(c, http.StatusInternalServerError, "failed to check existing user")
				return
			}

			hash, err := bcrypt.GenerateFromPassword([]byte(payload.Password), bcrypt.DefaultCost)
			if err != nil {
				respondDetail(c, http.StatusInternalServerError, "failed to hash password")
				return
			}

			id, err := deps.Users.Create(ctx, payload.Record(string(hash)))
			if err != nil {
				respondDetail(c, http.StatusInternalServerError, "failed to create user")
				return
			}
			created, err := deps.Users.FindByID(ctx, id)
			if err != nil {
				respondDetail(c, http.StatusInternalServerError, "failed to load created user")
				return
			}

			actor, _ := CurrentUser(c)
			deps.Recorder.Record(ctx, ActivityEvent{
				Event:   EventUserCreated,
				Actor:   actor.Email,
				Subject: created.Email,
			})

			c.JSON(http.StatusOK, created.User())
		})

		access.GET("/users", func(c *gin.Context) {
			items, err := deps.Users.List(c.Request.Context())
			if err != nil {
				respondDetail(c, http.StatusInternalServerError, "failed to list users")
				return
			}
			c.JSON(http.StatusOK, items)
		})

		access.PUT("/users/:id", func(c *gin.Context) {
			id, err := strconv.ParseInt(c.Param("id"), 10, 64)
			if err != nil {
				respondDetail(c, http.StatusBadRequest, "invalid user id")
				return
			}

			ctx := c.Request.Context()
			existing, err := deps.Users.FindByID(ctx, id)
			if err != nil {
				if errors.Is(err, ErrUserNotFound) {
					respondDetail(c, http.StatusNotFound, "User not found")
					return
				}
				respondDetail(c, http.StatusInternalServerError, "failed to load user")
				return
			}
			if IsProtectedEmail(existing.Email) {
				respondDetail(c, http.StatusForbidden, "Cannot modify protected user accounts")
				return
			}

			var upd UserUpdate
			if err := c.ShouldBindJSON(&upd); err != nil {
				respondDetail(c, http.StatusBadRequest, "invalid json")
				return
			}

			updated, err := deps.Users.UpdateAccess(ctx, id, upd)
			if err != nil {
				respondDetail(c, http.StatusInternalServerError, "failed to update user")
				return
			}

			actor, _ := CurrentUser(c)
			deps.Recorder.Record(ctx, ActivityEvent{
				Event:   EventUserUpdated,
				Actor:   actor.Email,
				Subject: updated.Email,
			})

			c.JSON(http.StatusOK, updated.User())
		})

		access.DELETE("/users/:id", func(c *gin.Context) {
			id, err := strconv.ParseInt(c.Param("id"), 10, 64)
			if err != nil {
				respondDetail(c, http.StatusBadRequest, "invalid user id")
				return
			}

			ctx := c.Request.Context()
			existing, err := deps.Users.FindByID(ctx, id)
			if err != nil {
				if errors.Is(err, ErrUserNotFound) {
					respondDetail(c, http.StatusNotFound, "User not found")
					return
				}
				respondDetail(c, http.StatusInternalServerError, "failed to load user")
				return
			}
			if IsProtectedEmail(existing.Email) {
				respondDetail(c, http.StatusForbidden, "Cannot delete protected user accounts")
				return
			}

			// Deactivate instead of delete so history keeps its references.
			if err := deps.Users.Deactivate(ctx, id); err != nil {
				respondDetail(c, http.StatusInternalServerError, "failed to deactivate user")
				return
			}

			actor, _ := CurrentUser(c)
			deps.Recorder.Record(ctx, ActivityEvent{
				Event:   EventUserDeactivated,
				Actor:   actor.Email,
				Subject: existing.Email,
			})

			c.JSON(http.StatusOK, gin.H{"message": "User deactivated"})
		})

		access.GET("/system-status", func(c *gin.Context) {
			st, err := CollectSystemStatus(c.Request.Context(), deps.Metrics, startedAt)
			if err != nil {
				respondDetail(c, http.StatusInternalServerError, "failed to collect system status")
				return
			}
			c.JSON(http.StatusOK, st)
		})

		access.GET("/activity", func(c *gin.Context) {
			limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
			items, err := deps.Activity.ListRecent(c.Request.Context(), limit)
			if err != nil {
				respondDetail(c, http.StatusInternalServerError, "failed to list activity")
				return
			}
			c.JSON(http.StatusOK, items)
		})
	}

	return r
}

// UserCreate is the POST /users payload.
type UserCreate struct {
	Email                     string `json:"email"`
	Password                  string `json:"password"`
	CanManageCustomers        bool   `json:"can_manage_customers"`
	CanViewFinancials         bool   `json:"can_view_financials"`
	CanManagePartnershipCodes bool   `json:"can_manage_partnership_codes"`
	CanViewPartnershipStats   bool   `json:"can_view_partnership_stats"`
	CanManageAccess           bool   `json:"can_manage_access"`
}

func (p UserCreate) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Email, validation.Required, is.Email),
		validation.Field(&p.Password, validation.Required, validation.Length(8, 0)),
	)
}

// Record builds the persistence row for a new account.
func (p UserCreate) Record(passwordHash string) UserRecord {
	return UserRecord{
		Email:                     p.Email,
		PasswordHash:              passwordHash,
		IsActive:                  true,
		CanManageCustomers:        p.CanManageCustomers,
		CanViewFinancials:         p.CanViewFinancials,
		CanManagePartnershipCodes: p.CanManagePartnershipCodes,
		CanViewPartnershipStats:   p.CanViewPartnershipStats,
		CanManageAccess:           p.CanManageAccess,
	}
}
