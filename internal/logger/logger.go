package logger

import (
	"go.uber.org/zap"
)

// Init 初始化全局 zap logger，之后统一通过 zap.L() 使用
func Init(debug bool) error {
	var (
		lg  *zap.Logger
		err error
	)
	if debug {
		lg, err = zap.NewDevelopment()
	} else {
		lg, err = zap.NewProduction()
	}
	if err != nil {
		return err
	}
	zap.ReplaceGlobals(lg)
	return nil
}
