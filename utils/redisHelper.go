package utils

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"time"

	"bitbucket.org/mmdatafocus/royalties_backend/config"
)

func GetCacheLifespan() time.Duration {
	lifespan, err := strconv.Atoi(os.Getenv("CACHE_LIFESPAN"))
	if err != nil {
		lifespan = 1
	}
	return time.Duration(lifespan) * time.Hour
}

/* generic functions */

func GetTypeName[T any]() string {
	var v T
	typeOfT := reflect.TypeOf(v)
	return typeOfT.Name()
}

/* Redis */

// store instance, obj should be a pointer
func StoreRedis[T any](obj any, id int) error {
	key := GetTypeName[T]() + ":" + fmt.Sprint(id)
	return config.SetRedisObject(key, &obj, GetCacheLifespan())
}

// store a list, scoped to an artist (artistId can be zero for portal-wide lists)
func StoreRedisList[T any](obj any, artistId int) error {
	var key string
	if artistId == 0 {
		key = GetTypeName[T]() + "List"
	} else {
		key = GetTypeName[T]() + "List:" + fmt.Sprint(artistId)
	}
	return config.SetRedisObject(key, &obj, GetCacheLifespan())
}

// get from redis
// returns nil if does not exist
func RetrieveRedis[T any](id int) (*T, error) {
	var result *T
	key := GetTypeName[T]() + ":" + fmt.Sprint(id)
	exists, err := config.GetRedisObject(key, &result)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}
	return result, nil
}

// retrieve a list.
// artistId can be zero
func RetrieveRedisList[T any](artistId int) ([]*T, error) {
	var key string
	if artistId == 0 {
		key = GetTypeName[T]() + "List"
	} else {
		key = GetTypeName[T]() + "List:" + fmt.Sprint(artistId)
	}

	var result []*T
	exists, err := config.GetRedisObject(key, &result)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}
	return result, nil
}

// remove cached instance + list for a type
func RemoveRedis[T any](id int, artistId int) error {
	keys := []string{GetTypeName[T]() + ":" + fmt.Sprint(id)}
	if artistId == 0 {
		keys = append(keys, GetTypeName[T]()+"List")
	} else {
		keys = append(keys, GetTypeName[T]()+"List:"+fmt.Sprint(artistId))
	}
	return config.RemoveRedisKey(keys...)
}
