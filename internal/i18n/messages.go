package i18n

var messages = map[string]map[string]string{
	LocaleZH: {
		"error.bad_request":               "请求参数错误",
		"error.internal":                  "服务器内部错误",
		"error.unauthorized":              "未登录",
		"error.forbidden":                 "无权访问",
		"error.not_found":                 "资源不存在",
		"error.too_many_requests":         "请求过于频繁，请稍后再试",
		"error.rate_limited":              "请求过于频繁，请 %d 秒后再试",
		"error.auth_header_missing":       "缺少认证信息",
		"error.auth_header_invalid":       "认证信息格式错误",
		"error.token_invalid":             "登录凭证无效",
		"error.token_revoked":             "登录凭证已失效",
		"error.jwt_secret_missing":        "认证服务未配置",
		"error.user_disabled":             "账号已被禁用",
		"error.product_not_found":         "商品不存在",
		"error.product_unavailable":       "商品未上架",
		"error.product_type_invalid":      "商品类型不支持该操作",
		"error.sku_not_found":             "商品规格不存在",
		"error.stock_insufficient":        "库存不足",
		"error.crowdfunding_ended":        "众筹已结束",
		"error.seckill_not_started":       "秒杀尚未开始",
		"error.seckill_ended":             "秒杀已结束",
		"error.seckill_purchased":         "您已抢购过该商品",
		"error.seckill_busy":              "抢购人数过多，请稍后再试",
		"error.address_not_found":         "收货地址不存在",
		"error.coupon_invalid":            "优惠券不可用",
		"error.coupon_exhausted":          "优惠券已领完",
		"error.order_not_found":           "订单不存在",
		"error.order_closed":              "订单已关闭",
		"error.order_paid":                "订单已支付",
		"error.order_not_paid":            "订单未支付",
		"error.refund_not_allowed":        "该订单不支持退款",
		"error.refund_status_invalid":     "退款状态不正确",
		"error.ship_status_invalid":       "物流状态不正确",
		"error.installment_not_found":     "分期不存在",
		"error.installment_count_invalid": "分期期数不支持",
		"error.installment_min_amount":    "订单金额低于分期门槛 %s",
		"error.installment_item_paid":     "该期已还款",
		"error.installment_item_not_next": "请先偿还更早的一期",
		"error.installment_item_missing":  "分期子项不存在",
		"error.payment_method_invalid":    "支付方式不支持",
		"error.payment_unavailable":       "支付渠道暂不可用",
		"error.payment_callback_invalid":  "支付回调无效",
		"error.payment_amount_mismatch":   "支付金额不一致",
		"msg.payment_succeeded":           "支付成功",
	},
	LocaleTW: {
		"error.bad_request":               "請求參數錯誤",
		"error.internal":                  "伺服器內部錯誤",
		"error.unauthorized":              "未登入",
		"error.forbidden":                 "無權存取",
		"error.not_found":                 "資源不存在",
		"error.too_many_requests":         "請求過於頻繁，請稍後再試",
		"error.rate_limited":              "請求過於頻繁，請 %d 秒後再試",
		"error.auth_header_missing":       "缺少認證資訊",
		"error.auth_header_invalid":       "認證資訊格式錯誤",
		"error.token_invalid":             "登入憑證無效",
		"error.token_revoked":             "登入憑證已失效",
		"error.jwt_secret_missing":        "認證服務未設定",
		"error.user_disabled":             "帳號已被停用",
		"error.product_not_found":         "商品不存在",
		"error.product_unavailable":       "商品未上架",
		"error.product_type_invalid":      "商品類型不支援該操作",
		"error.sku_not_found":             "商品規格不存在",
		"error.stock_insufficient":        "庫存不足",
		"error.crowdfunding_ended":        "眾籌已結束",
		"error.seckill_not_started":       "秒殺尚未開始",
		"error.seckill_ended":             "秒殺已結束",
		"error.seckill_purchased":         "您已搶購過該商品",
		"error.seckill_busy":              "搶購人數過多，請稍後再試",
		"error.address_not_found":         "收貨地址不存在",
		"error.coupon_invalid":            "優惠券不可用",
		"error.coupon_exhausted":          "優惠券已領完",
		"error.order_not_found":           "訂單不存在",
		"error.order_closed":              "訂單已關閉",
		"error.order_paid":                "訂單已支付",
		"error.order_not_paid":            "訂單未支付",
		"error.refund_not_allowed":        "該訂單不支援退款",
		"error.refund_status_invalid":     "退款狀態不正確",
		"error.ship_status_invalid":       "物流狀態不正確",
		"error.installment_not_found":     "分期不存在",
		"error.installment_count_invalid": "分期期數不支援",
		"error.installment_min_amount":    "訂單金額低於分期門檻 %s",
		"error.installment_item_paid":     "該期已還款",
		"error.installment_item_not_next": "請先償還更早的一期",
		"error.installment_item_missing":  "分期子項不存在",
		"error.payment_method_invalid":    "支付方式不支援",
		"error.payment_unavailable":       "支付渠道暫不可用",
		"error.payment_callback_invalid":  "支付回調無效",
		"error.payment_amount_mismatch":   "支付金額不一致",
		"msg.payment_succeeded":           "支付成功",
	},
	LocaleEN: {
		"error.bad_request":               "Invalid request parameters",
		"error.internal":                  "Internal server error",
		"error.unauthorized":              "Not signed in",
		"error.forbidden":                 "Access denied",
		"error.not_found":                 "Resource not found",
		"error.too_many_requests":         "Too many requests, please try again later",
		"error.rate_limited":              "Too many requests, retry in %d seconds",
		"error.auth_header_missing":       "Missing authorization header",
		"error.auth_header_invalid":       "Malformed authorization header",
		"error.token_invalid":             "Invalid token",
		"error.token_revoked":             "Token has been revoked",
		"error.jwt_secret_missing":        "Authentication is not configured",
		"error.user_disabled":             "Account is disabled",
		"error.product_not_found":         "Product not found",
		"error.product_unavailable":       "Product is not on sale",
		"error.product_type_invalid":      "Product type does not support this operation",
		"error.sku_not_found":             "SKU not found",
		"error.stock_insufficient":        "Insufficient stock",
		"error.crowdfunding_ended":        "Crowdfunding has ended",
		"error.seckill_not_started":       "Flash sale has not started",
		"error.seckill_ended":             "Flash sale has ended",
		"error.seckill_purchased":         "You have already purchased this product",
		"error.seckill_busy":              "Too many shoppers, please try again later",
		"error.address_not_found":         "Address not found",
		"error.coupon_invalid":            "Coupon is not applicable",
		"error.coupon_exhausted":          "Coupon has been used up",
		"error.order_not_found":           "Order not found",
		"error.order_closed":              "Order is closed",
		"error.order_paid":                "Order is already paid",
		"error.order_not_paid":            "Order is not paid",
		"error.refund_not_allowed":        "Refund is not allowed for this order",
		"error.refund_status_invalid":     "Invalid refund status",
		"error.ship_status_invalid":       "Invalid shipping status",
		"error.installment_not_found":     "Installment not found",
		"error.installment_count_invalid": "Unsupported installment count",
		"error.installment_min_amount":    "Order amount is below the installment minimum %s",
		"error.installment_item_paid":     "This period is already paid",
		"error.installment_item_not_next": "Please pay the earlier period first",
		"error.installment_item_missing":  "Installment period not found",
		"error.payment_method_invalid":    "Unsupported payment method",
		"error.payment_unavailable":       "Payment channel is unavailable",
		"error.payment_callback_invalid":  "Invalid payment callback",
		"error.payment_amount_mismatch":   "Paid amount mismatch",
		"msg.payment_succeeded":           "Payment succeeded",
	},
}
