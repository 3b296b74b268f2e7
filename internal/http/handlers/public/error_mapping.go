package public

import (
	"errors"

	handlershared "github.com/harvestlink/internal/http/handlers/shared"
	"github.com/harvestlink/internal/http/response"
	"github.com/harvestlink/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func requestLog(c *gin.Context) *zap.SugaredLogger {
	return handlershared.RequestLog(c)
}

func respondError(c *gin.Context, code int, msg string, err error) {
	handlershared.RespondError(c, code, msg, err)
}

// mappedHandlerError 定义业务错误到接口错误响应的映射关系。
type mappedHandlerError struct {
	target error
	code   int
	msg    string
}

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackCode int, fallbackMsg string) {
	var oos *service.OutOfStockError
	if errors.As(err, &oos) {
		response.ErrorWithData(c, response.CodeBadRequest, "批次库存不足", gin.H{
			"lot_id":    oos.LotID,
			"requested": oos.Requested,
			"remaining": oos.Remaining,
		})
		return
	}
	for _, rule := range rules {
		if errors.Is(err, rule.target) {
			respondError(c, rule.code, rule.msg, nil)
			return
		}
	}
	respondError(c, fallbackCode, fallbackMsg, err)
}

var checkoutErrorRules = []mappedHandlerError{
	{target: service.ErrCustomerNotFound, code: response.CodeUnauthorized, msg: "客户不存在"},
	{target: service.ErrCustomerDisabled, code: response.CodeForbidden, msg: "账号已被禁用"},
	{target: service.ErrInvalidOrderItem, code: response.CodeBadRequest, msg: "订单条目无效"},
	{target: service.ErrInvalidQuantity, code: response.CodeBadRequest, msg: "购买数量无效"},
	{target: service.ErrLotNotFound, code: response.CodeBadRequest, msg: "预售批次不存在"},
	{target: service.ErrLotNotActive, code: response.CodeBadRequest, msg: "预售批次未开放"},
	{target: service.ErrLotOutOfStock, code: response.CodeBadRequest, msg: "批次库存不足"},
	{target: service.ErrProductNotAvailable, code: response.CodeBadRequest, msg: "商品暂不可售"},
}

var orderAccessErrorRules = []mappedHandlerError{
	{target: service.ErrOrderNotFound, code: response.CodeNotFound, msg: "订单不存在"},
	{target: service.ErrOrderStatusInvalid, code: response.CodeBadRequest, msg: "订单状态不允许该操作"},
}

var referralEnrollErrorRules = []mappedHandlerError{
	{target: service.ErrCustomerNotFound, code: response.CodeUnauthorized, msg: "客户不存在"},
	{target: service.ErrReferralMemberExists, code: response.CodeBadRequest, msg: "已是推荐人"},
	{target: service.ErrReferralCodeExists, code: response.CodeBadRequest, msg: "推荐码已被占用"},
}

func concatMappedHandlerErrors(groups ...[]mappedHandlerError) []mappedHandlerError {
	total := 0
	for _, group := range groups {
		total += len(group)
	}
	result := make([]mappedHandlerError, 0, total)
	for _, group := range groups {
		result = append(result, group...)
	}
	return result
}
