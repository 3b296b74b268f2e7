package public

import (
	handlershared "github.com/harvestlink/internal/http/handlers/shared"

	"github.com/gin-gonic/gin"
)

func getCustomerID(c *gin.Context) (uint, bool) {
	return handlershared.GetContextUint(c, "customer_id")
}
