package payroll

import "errors"

var (
	ErrPeriodNotFound    = errors.New("payroll period not found")
	ErrPeriodExists      = errors.New("payroll period already exists for month and year")
	ErrPeriodClosed      = errors.New("payroll period already closed")
	ErrPeriodCalculating = errors.New("payroll computation already running for period")
	ErrPeriodNotOpen     = errors.New("payroll period is not open")
	ErrPeriodNotStuck    = errors.New("payroll period is not in calculating state")
	ErrComponentNotFound = errors.New("payroll component not found")
	ErrSlipNotFound      = errors.New("pay slip not found")
)
