package masterdata

import "errors"

var (
	ErrUnitNotFound     = errors.New("masterdata: unit not found")
	ErrUnitNameTaken    = errors.New("masterdata: unit name already in use")
	ErrContractNotFound = errors.New("masterdata: contract not found")
)
