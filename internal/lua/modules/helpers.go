package modules

import (
	"fmt"
	"strconv"

	lua "github.com/yuin/gopher-lua"
)

// LuaToGo converts a Lua value to a Go value. Tables with only integer keys
// become slices, other tables become maps.
func LuaToGo(v lua.LValue) any {
	switch val := v.(type) {
	case lua.LString:
		return string(val)
	case lua.LNumber:
		return float64(val)
	case lua.LBool:
		return bool(val)
	case *lua.LTable:
		isArray := true
		maxIdx := 0
		val.ForEach(func(k, _ lua.LValue) {
			if num, ok := k.(lua.LNumber); ok {
				if idx := int(num); idx > maxIdx {
					maxIdx = idx
				}
			} else {
				isArray = false
			}
		})

		if isArray && maxIdx > 0 {
			arr := make([]any, maxIdx)
			val.ForEach(func(k, v lua.LValue) {
				if num, ok := k.(lua.LNumber); ok && int(num) >= 1 {
					arr[int(num)-1] = LuaToGo(v)
				}
			})
			return arr
		}

		return LuaTableToMap(val)
	case *lua.LNilType:
		return nil
	default:
		return v.String()
	}
}

// LuaTableToMap converts a Lua table to a Go map keyed by string form
func LuaTableToMap(tbl *lua.LTable) map[string]any {
	m := make(map[string]any)
	tbl.ForEach(func(k, v lua.LValue) {
		m[lua.LVAsString(k)] = LuaToGo(v)
	})
	return m
}

// checkID reads a light or group ID given as number or numeric string.
func checkID(L *lua.LState, n int) int {
	switch v := L.Get(n).(type) {
	case lua.LNumber:
		return int(v)
	case lua.LString:
		id, err := strconv.Atoi(string(v))
		if err != nil {
			L.ArgError(n, fmt.Sprintf("invalid id %q", string(v)))
		}
		return id
	default:
		L.ArgError(n, "id must be a number or string")
	}
	return 0
}

// pushError pushes the (nil, message) pair scripts check for.
func pushError(L *lua.LState, err error) int {
	L.Push(lua.LNil)
	L.Push(lua.LString(err.Error()))
	return 2
}
